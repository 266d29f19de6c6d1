//go:build linux

package clip

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const platformName = "Linux clipboard"

// readFiles asks the session's clipboard helper for text/uri-list. A missing
// helper binary means the platform can't tell; a failed run means the target
// isn't on the clipboard.
func readFiles() ([]string, error) {
	var cmd *exec.Cmd
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		cmd = exec.Command("wl-paste", "--no-newline", "--type", "text/uri-list")
	} else {
		cmd = exec.Command("xclip", "-selection", "clipboard", "-o", "-t", "text/uri-list")
	}
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrUnsupported
		}
		return nil, nil
	}
	return parseURIList(string(out)), nil
}

// writeFiles publishes paths as text/uri-list. Both helpers fork to keep
// serving the selection, so only stdin is attached.
func writeFiles(paths []string) error {
	var cmd *exec.Cmd
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		cmd = exec.Command("wl-copy", "--type", "text/uri-list")
	} else {
		cmd = exec.Command("xclip", "-selection", "clipboard", "-i", "-t", "text/uri-list")
	}
	cmd.Stdin = strings.NewReader(formatURIList(paths))
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ErrUnsupported
		}
		return fmt.Errorf("clip: write file list: %w", err)
	}
	return nil
}
