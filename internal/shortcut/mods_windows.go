//go:build hotkeys

package shortcut

import "golang.design/x/hotkey"

var modifiers = map[string]hotkey.Modifier{
	"commandorcontrol": hotkey.ModCtrl,
	"ctrl":             hotkey.ModCtrl,
	"shift":            hotkey.ModShift,
	"alt":              hotkey.ModAlt,
	"super":            hotkey.ModWin,
}
