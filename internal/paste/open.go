package paste

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.klb.dev/clipkeep/internal/model"
)

// Open shows an image or file-list record in the desktop's default
// application. Text records have nothing to open. Each path must exist;
// the first missing one fails the call with an error wrapping
// os.ErrNotExist.
func (s *Sink) Open(ctx context.Context, rec *model.Record) error {
	var paths []string
	switch c := rec.Content.(type) {
	case model.Image:
		paths = []string{c.Path}
	case model.Files:
		paths = c.Paths
	default:
		return ErrNothingToOpen
	}
	if len(paths) == 0 {
		return ErrNothingToOpen
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
	}
	for _, p := range paths {
		if err := s.open(ctx, p); err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		slog.Debug("path opened", "path", p)
	}
	return nil
}

// ErrNothingToOpen is returned by Open for records without paths.
var ErrNothingToOpen = errors.New("paste: record has no path to open")

func openPath(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", path)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", path)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
