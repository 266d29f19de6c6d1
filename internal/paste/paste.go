// Package paste places content on the system clipboard and, when enabled,
// injects the paste keystroke into the focused application. It also opens
// stored image and file paths with the desktop's default application.
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
	"time"

	"go.klb.dev/clipkeep/internal/model"
)

// keystrokeDelay gives the clipboard owner time to publish before the
// target application reads it.
const keystrokeDelay = 50 * time.Millisecond

// Clipboard is the write side of clip.Backend.
type Clipboard interface {
	WriteText([]byte) error
	WriteImage([]byte) error
	WriteFiles([]string) error
}

// Settings is read on every paste.
type Settings interface {
	AutoPaste() bool
	PasteCommand() string
}

// Sink writes to the clipboard.
type Sink struct {
	clip     Clipboard
	settings Settings
	run      func(ctx context.Context, command string) error
	open     func(ctx context.Context, path string) error
}

// New returns a Sink.
func New(clip Clipboard, settings Settings) *Sink {
	return &Sink{clip: clip, settings: settings, run: runShell, open: openPath}
}

// PasteText puts text on the clipboard and sends the keystroke.
func (s *Sink) PasteText(ctx context.Context, text string) error {
	if err := s.clip.WriteText([]byte(text)); err != nil {
		return fmt.Errorf("write clipboard text: %w", err)
	}
	return s.keystroke(ctx)
}

// PasteRecord puts a history record back on the clipboard and sends the
// keystroke.
func (s *Sink) PasteRecord(ctx context.Context, rec *model.Record) error {
	if err := s.CopyRecord(rec); err != nil {
		return err
	}
	return s.keystroke(ctx)
}

// CopyRecord puts rec on the clipboard without sending a keystroke.
func (s *Sink) CopyRecord(rec *model.Record) error {
	switch c := rec.Content.(type) {
	case model.Text:
		if err := s.clip.WriteText([]byte(c.Text)); err != nil {
			return fmt.Errorf("write clipboard text: %w", err)
		}
	case model.Image:
		data, err := os.ReadFile(c.Path)
		if err != nil {
			return fmt.Errorf("read cached image: %w", err)
		}
		if err := s.clip.WriteImage(data); err != nil {
			return fmt.Errorf("write clipboard image: %w", err)
		}
	case model.Files:
		if err := s.clip.WriteFiles(c.Paths); err != nil {
			return fmt.Errorf("write clipboard file list: %w", err)
		}
	default:
		return errors.New("record has no content")
	}
	return nil
}

// CopyImage puts PNG data on the clipboard without sending a keystroke.
func (s *Sink) CopyImage(png []byte) error {
	if err := s.clip.WriteImage(png); err != nil {
		return fmt.Errorf("write clipboard image: %w", err)
	}
	return nil
}

func (s *Sink) keystroke(ctx context.Context) error {
	if !s.settings.AutoPaste() {
		return nil
	}
	command := strings.TrimSpace(s.settings.PasteCommand())
	if command == "" {
		return nil
	}

	select {
	case <-time.After(keystrokeDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := s.run(ctx, command); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}
	slog.Debug("paste keystroke sent")
	return nil
}

func runShell(ctx context.Context, command string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
