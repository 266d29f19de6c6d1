//go:build windows

package clip

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const platformName = "Windows Clipboard"

func readFiles() ([]string, error) {
	out, err := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command",
		"Get-Clipboard -Format FileDropList | ForEach-Object { $_.FullName }").Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrUnsupported
		}
		return nil, nil
	}
	return splitLines(string(out)), nil
}

func writeFiles(paths []string) error {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "'" + strings.ReplaceAll(p, "'", "''") + "'"
	}
	err := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command",
		"Set-Clipboard -LiteralPath "+strings.Join(quoted, ",")).Run()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ErrUnsupported
		}
		return fmt.Errorf("clip: write file list: %w", err)
	}
	return nil
}
