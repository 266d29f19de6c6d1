//go:build !hotkeys || !(linux || darwin || windows)

package shortcut

import "errors"

// Available reports whether this build binds real global hotkeys.
const Available = false

// HotkeyRegistrar stands in when the binary is built without the hotkeys
// tag or for a platform without global hotkeys. Every registration fails.
type HotkeyRegistrar struct{}

// NewHotkeyRegistrar returns a registrar that binds nothing.
func NewHotkeyRegistrar() *HotkeyRegistrar { return &HotkeyRegistrar{} }

func (*HotkeyRegistrar) Register(string, func()) bool { return false }

func (*HotkeyRegistrar) Unregister(combo string) error {
	return errors.New("shortcut not registered: " + combo)
}

func (*HotkeyRegistrar) IsRegistered(string) bool { return false }
