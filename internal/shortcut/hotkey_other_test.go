//go:build !hotkeys

package shortcut

import (
	"context"
	"testing"

	"go.klb.dev/clipkeep/internal/model"
)

// Without the hotkeys tag the package must not link the native hotkey
// library, whose init needs a display, and every binding must fail cleanly.
func TestStubRegistrarBindsNothing(t *testing.T) {
	if Available {
		t.Fatal("untagged build claims native hotkeys")
	}
	reg := NewHotkeyRegistrar()
	if reg.Register("Ctrl+Shift+V", func() { t.Error("handler ran") }) {
		t.Fatal("stub registrar accepted a binding")
	}
	if reg.IsRegistered("Ctrl+Shift+V") {
		t.Fatal("stub registrar reports a binding")
	}
	if err := reg.Unregister("Ctrl+Shift+V"); err == nil {
		t.Fatal("unregister of an unbound shortcut succeeded")
	}

	src := &fakeTemplates{list: []model.Template{
		tmpl("a", "Ctrl+1", true, model.TriggerShortcut),
		tmpl("b", "Ctrl+2", true, model.TriggerShortcut),
	}}
	m := NewManager(reg, src, echoResolver{}, &recordingPaster{})
	sum, err := m.RegisterTemplateShortcuts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := (Summary{Failed: 2}); sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}
	if got := m.Bound(); len(got) != 0 {
		t.Errorf("bound = %v", got)
	}
}
