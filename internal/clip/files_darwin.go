//go:build darwin

package clip

import (
	"errors"
	"fmt"
	"os/exec"
)

const platformName = "macOS NSPasteboard"

const fileURLScript = `ObjC.import('AppKit');
var pb = $.NSPasteboard.generalPasteboard;
var urls = pb.readObjectsForClassesOptions($([$.NSURL]), $());
var out = [];
if (urls) {
  for (var i = 0; i < urls.count; i++) {
    var u = urls.objectAtIndex(i);
    if (u.isFileURL) { out.push(u.path.js); }
  }
}
out.join('\n');`

func readFiles() ([]string, error) {
	out, err := exec.Command("osascript", "-l", "JavaScript", "-e", fileURLScript).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrUnsupported
		}
		return nil, nil
	}
	return splitLines(string(out)), nil
}

const writeFileURLScript = `function run(argv) {
  ObjC.import('AppKit');
  var pb = $.NSPasteboard.generalPasteboard;
  pb.clearContents;
  var urls = argv.map(function (p) { return $.NSURL.fileURLWithPath(p); });
  pb.writeObjects($(urls));
}`

func writeFiles(paths []string) error {
	args := append([]string{"-l", "JavaScript", "-e", writeFileURLScript}, paths...)
	if err := exec.Command("osascript", args...).Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ErrUnsupported
		}
		return fmt.Errorf("clip: write file list: %w", err)
	}
	return nil
}
