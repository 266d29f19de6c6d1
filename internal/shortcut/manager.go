// Package shortcut keeps global hotkeys in step with the enabled
// shortcut-triggered templates and pastes the resolved snippet when one
// fires.
//
// UpdateShortcuts does not diff: it releases every binding and registers
// again from the current template list, so no template hotkey is bound for
// a short window during an update.
//
// The native hotkey registrar is compiled in only with -tags hotkeys; its
// library needs a display at process start on Linux. Other builds get a
// registrar on which every binding fails.
package shortcut

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/clipkeep/internal/metrics"
	"go.klb.dev/clipkeep/internal/model"
)

// triggerTimeout bounds one resolve-and-paste run.
const triggerTimeout = 10 * time.Second

// Registrar binds accelerator strings to OS-level hotkeys.
type Registrar interface {
	// Register binds combo to fn and reports success. It never panics.
	Register(combo string, fn func()) bool
	Unregister(combo string) error
	IsRegistered(combo string) bool
}

// TemplateSource lists stored templates.
type TemplateSource interface {
	ListTemplates(ctx context.Context) ([]*model.Template, error)
}

// Resolver expands a template's snippet.
type Resolver interface {
	Resolve(ctx context.Context, tmpl *model.Template) (string, error)
}

// Paster delivers resolved text to the focused application.
type Paster interface {
	PasteText(ctx context.Context, text string) error
}

// Summary counts the outcome of one registration pass.
type Summary struct {
	Registered int `json:"registered"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// Manager owns the template hotkeys.
type Manager struct {
	reg      Registrar
	src      TemplateSource
	resolver Resolver
	paster   Paster

	// syncMu serialises whole register/unregister passes.
	syncMu sync.Mutex

	mu    sync.Mutex
	bound map[string]string // shortcut -> template id
}

// NewManager returns a Manager with nothing bound.
func NewManager(reg Registrar, src TemplateSource, resolver Resolver, paster Paster) *Manager {
	return &Manager{
		reg:      reg,
		src:      src,
		resolver: resolver,
		paster:   paster,
		bound:    make(map[string]string),
	}
}

// Bound returns the tracked shortcut strings.
func (m *Manager) Bound() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.bound))
	for s := range m.bound {
		out = append(out, s)
	}
	return out
}

// RegisterTemplateShortcuts binds every enabled shortcut template. A
// shortcut that is already tracked is skipped; a binding failure is counted
// and the pass continues.
func (m *Manager) RegisterTemplateShortcuts(ctx context.Context) (Summary, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	return m.register(ctx)
}

func (m *Manager) register(ctx context.Context) (Summary, error) {
	var sum Summary
	templates, err := m.src.ListTemplates(ctx)
	if err != nil {
		return sum, fmt.Errorf("list templates: %w", err)
	}

	for _, t := range templates {
		tmpl := *t
		if !tmpl.Bindable() {
			continue
		}

		m.mu.Lock()
		owner, tracked := m.bound[tmpl.Shortcut]
		m.mu.Unlock()
		if tracked {
			slog.Warn("shortcut already bound, skipping",
				"shortcut", tmpl.Shortcut, "template", tmpl.ID, "bound_to", owner)
			sum.Skipped++
			metrics.ShortcutRegistrations.WithLabelValues("skipped").Inc()
			continue
		}

		if !m.reg.Register(tmpl.Shortcut, m.handler(tmpl)) {
			slog.Error("shortcut registration failed, it may be in use by another application",
				"shortcut", tmpl.Shortcut, "template", tmpl.ID)
			sum.Failed++
			metrics.ShortcutRegistrations.WithLabelValues("failed").Inc()
			continue
		}

		m.mu.Lock()
		m.bound[tmpl.Shortcut] = tmpl.ID
		m.mu.Unlock()
		slog.Debug("shortcut registered", "shortcut", tmpl.Shortcut, "template", tmpl.ID)
		sum.Registered++
		metrics.ShortcutRegistrations.WithLabelValues("registered").Inc()
	}

	m.updateGauge()
	slog.Info("template shortcuts registered",
		"registered", sum.Registered, "failed", sum.Failed, "skipped", sum.Skipped)
	return sum, nil
}

// UnregisterTemplateShortcuts releases every tracked binding. Release
// failures are logged; tracking is cleared regardless.
func (m *Manager) UnregisterTemplateShortcuts() {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	m.unregister()
}

func (m *Manager) unregister() {
	m.mu.Lock()
	combos := make([]string, 0, len(m.bound))
	for s := range m.bound {
		combos = append(combos, s)
	}
	m.bound = make(map[string]string)
	m.mu.Unlock()

	released := 0
	for _, combo := range combos {
		if err := m.reg.Unregister(combo); err != nil {
			slog.Error("shortcut release failed", "shortcut", combo, "err", err)
			continue
		}
		released++
	}
	m.updateGauge()
	slog.Info("template shortcuts released", "released", released, "tracked", len(combos))
}

// UpdateShortcuts releases everything and registers again from the current
// templates.
func (m *Manager) UpdateShortcuts(ctx context.Context) (Summary, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	m.unregister()
	return m.register(ctx)
}

// Close releases every binding.
func (m *Manager) Close() {
	m.UnregisterTemplateShortcuts()
}

func (m *Manager) handler(tmpl model.Template) func() {
	return func() {
		slog.Info("shortcut triggered", "shortcut", tmpl.Shortcut, "template", tmpl.ID)
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()

		text, err := m.resolver.Resolve(ctx, &tmpl)
		if err != nil {
			slog.Error("snippet resolution failed", "template", tmpl.ID, "err", err)
			return
		}
		if err := m.paster.PasteText(ctx, text); err != nil {
			slog.Error("snippet paste failed", "template", tmpl.ID, "err", err)
		}
	}
}

func (m *Manager) updateGauge() {
	m.mu.Lock()
	n := len(m.bound)
	m.mu.Unlock()
	metrics.Shortcuts.Set(float64(n))
}
