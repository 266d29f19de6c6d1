//go:build hotkeys && (linux || darwin || windows)

package shortcut

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"
)

var keys = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,

	"space":  hotkey.KeySpace,
	"return": hotkey.KeyReturn,
	"escape": hotkey.KeyEscape,
	"delete": hotkey.KeyDelete,
	"tab":    hotkey.KeyTab,
	"left":   hotkey.KeyLeft,
	"right":  hotkey.KeyRight,
	"up":     hotkey.KeyUp,
	"down":   hotkey.KeyDown,
}

// Available reports whether this build binds real global hotkeys.
const Available = true

type binding struct {
	hk   *hotkey.Hotkey
	done chan struct{}
}

// HotkeyRegistrar binds accelerators as system-wide hotkeys. On macOS the
// process must run its main function through mainthread.Init.
type HotkeyRegistrar struct {
	mu    sync.Mutex
	bound map[string]*binding
}

// NewHotkeyRegistrar returns an empty registrar.
func NewHotkeyRegistrar() *HotkeyRegistrar {
	return &HotkeyRegistrar{bound: make(map[string]*binding)}
}

func build(combo string) (*hotkey.Hotkey, error) {
	c, err := ParseCombo(combo)
	if err != nil {
		return nil, err
	}
	var mods []hotkey.Modifier
	for _, name := range c.Mods {
		m, ok := modifiers[name]
		if !ok {
			return nil, fmt.Errorf("%w: modifier %q not available on this platform", ErrBadCombo, name)
		}
		mods = append(mods, m)
	}
	return hotkey.New(mods, keys[c.Key]), nil
}

// Register implements Registrar.
func (r *HotkeyRegistrar) Register(combo string, fn func()) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("hotkey registration panicked", "shortcut", combo, "panic", p)
			ok = false
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.bound[combo]; dup {
		return false
	}

	hk, err := build(combo)
	if err != nil {
		slog.Warn("hotkey not bindable", "shortcut", combo, "err", err)
		return false
	}
	if err := hk.Register(); err != nil {
		slog.Warn("hotkey registration rejected", "shortcut", combo, "err", err)
		return false
	}

	b := &binding{hk: hk, done: make(chan struct{})}
	r.bound[combo] = b
	// Unregister closes and replaces the keydown channel, so the listener
	// keeps the one this binding started with.
	go listen(combo, b.hk.Keydown(), b.done, fn)
	return true
}

// Unregister implements Registrar.
func (r *HotkeyRegistrar) Unregister(combo string) error {
	r.mu.Lock()
	b, ok := r.bound[combo]
	delete(r.bound, combo)
	r.mu.Unlock()
	if !ok {
		return errors.New("shortcut not registered: " + combo)
	}
	close(b.done)
	if err := b.hk.Unregister(); err != nil {
		return fmt.Errorf("unregister %s: %w", combo, err)
	}
	return nil
}

// IsRegistered implements Registrar.
func (r *HotkeyRegistrar) IsRegistered(combo string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bound[combo]
	return ok
}
