//go:build linux || darwin || windows

package clip

import (
	"errors"
	"log/slog"
	"strings"

	"golang.design/x/clipboard"
)

type systemBackend struct {
	name string
}

// New returns the desktop clipboard backend, or a headless no-op backend if
// the display environment is unavailable (e.g. a headless server without X11
// or Wayland). clipboard.Init is called here rather than in init() so that
// CLI sub-commands which never touch the clipboard don't trigger the warning.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return &headlessBackend{}
	}
	return &systemBackend{name: platformName}
}

func (b *systemBackend) Name() string { return b.name }

func (b *systemBackend) Text() ([]byte, error) {
	return clipboard.Read(clipboard.FmtText), nil
}

func (b *systemBackend) Image() ([]byte, error) {
	return clipboard.Read(clipboard.FmtImage), nil
}

func (b *systemBackend) Files() ([]string, error) { return readFiles() }

func (b *systemBackend) WriteText(text []byte) error {
	clipboard.Write(clipboard.FmtText, text)
	return nil
}

func (b *systemBackend) WriteImage(png []byte) error {
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

func (b *systemBackend) WriteFiles(paths []string) error {
	err := writeFiles(paths)
	if errors.Is(err, ErrUnsupported) {
		slog.Debug("file list helper unavailable, writing paths as text")
		clipboard.Write(clipboard.FmtText, []byte(strings.Join(paths, "\n")))
		return nil
	}
	return err
}

func (b *systemBackend) Close() {}
