//go:build hotkeys

package shortcut

import "golang.design/x/hotkey"

var modifiers = map[string]hotkey.Modifier{
	"commandorcontrol": hotkey.ModCmd,
	"ctrl":             hotkey.ModCtrl,
	"shift":            hotkey.ModShift,
	"alt":              hotkey.ModOption,
	"super":            hotkey.ModCmd,
}
