package shortcut

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadCombo is returned for an accelerator string that cannot be bound.
var ErrBadCombo = errors.New("shortcut: invalid accelerator")

// Combo is a parsed accelerator: modifier names in canonical form plus one
// key name, e.g. "CommandOrControl+Shift+1" gives
// {Mods: [commandorcontrol shift], Key: "1"}.
type Combo struct {
	Mods []string
	Key  string
}

var modAliases = map[string]string{
	"commandorcontrol": "commandorcontrol",
	"cmdorctrl":        "commandorcontrol",
	"control":          "ctrl",
	"ctrl":             "ctrl",
	"shift":            "shift",
	"alt":              "alt",
	"option":           "alt",
	"altgr":            "alt",
	"command":          "super",
	"cmd":              "super",
	"super":            "super",
	"meta":             "super",
	"win":              "super",
}

var keyAliases = map[string]string{
	"enter":  "return",
	"esc":    "escape",
	"del":    "delete",
	"up":     "up",
	"down":   "down",
	"left":   "left",
	"right":  "right",
	"space":  "space",
	"tab":    "tab",
	"return": "return",
	"escape": "escape",
	"delete": "delete",
}

// ParseCombo splits an accelerator such as "Ctrl+Alt+T" into modifiers and a
// key. Names are case-insensitive. At least one modifier is required.
func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(s, "+")
	if len(parts) < 2 {
		return Combo{}, fmt.Errorf("%w: %q needs a modifier and a key", ErrBadCombo, s)
	}

	var c Combo
	seen := make(map[string]bool)
	for _, p := range parts[:len(parts)-1] {
		name, ok := modAliases[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Combo{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrBadCombo, p, s)
		}
		if !seen[name] {
			seen[name] = true
			c.Mods = append(c.Mods, name)
		}
	}

	key := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	if alias, ok := keyAliases[key]; ok {
		key = alias
	}
	if !validKey(key) {
		return Combo{}, fmt.Errorf("%w: unknown key %q in %q", ErrBadCombo, parts[len(parts)-1], s)
	}
	c.Key = key
	return c, nil
}

func validKey(k string) bool {
	if _, ok := keyAliases[k]; ok {
		return true
	}
	if len(k) == 1 {
		return ('a' <= k[0] && k[0] <= 'z') || ('0' <= k[0] && k[0] <= '9')
	}
	switch k {
	case "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12":
		return true
	}
	return false
}
