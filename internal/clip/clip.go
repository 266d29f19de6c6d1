// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_system.go   desktop backend via golang.design/x/clipboard
//	files_linux.go   file lists via wl-paste / wl-copy / xclip (text/uri-list)
//	files_darwin.go  file lists via osascript (NSPasteboard file URLs)
//	files_windows.go file lists via PowerShell Get-Clipboard / Set-Clipboard
//	clip_other.go    headless stub
package clip

import (
	"errors"
	"net/url"
	"strings"
)

// ErrUnsupported is returned when the platform (or the helper tools it
// relies on) cannot read or write file lists.
var ErrUnsupported = errors.New("clip: file lists not supported")

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Text returns the clipboard text, or nil if no text format is present.
	Text() ([]byte, error)

	// Image returns the clipboard image as encoded bytes (PNG on every
	// supported platform), or nil if no image format is present.
	Image() ([]byte, error)

	// Files returns the file and folder paths on the clipboard in order.
	// Returns nil, nil when none are present and ErrUnsupported when the
	// platform cannot tell.
	Files() ([]string, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(text []byte) error

	// WriteImage replaces the clipboard contents with a PNG image.
	WriteImage(png []byte) error

	// WriteFiles replaces the clipboard contents with a file list, so that
	// Files reports the same paths afterwards. Backends that cannot publish
	// a file list write the paths as newline-separated text instead.
	WriteFiles(paths []string) error

	// Close releases any resources held by the backend.
	Close()
}

// parseURIList extracts local paths from a text/uri-list payload (RFC 2483).
// Comment lines and non-file URIs are skipped.
func parseURIList(data string) []string {
	var paths []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.Scheme != "file" || u.Path == "" {
			continue
		}
		paths = append(paths, u.Path)
	}
	return paths
}

// formatURIList renders paths as a text/uri-list payload.
func formatURIList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		u := url.URL{Scheme: "file", Path: p}
		b.WriteString(u.String())
		b.WriteString("\r\n")
	}
	return b.String()
}

// splitLines returns the non-empty trimmed lines of s.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
