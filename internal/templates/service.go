// Package templates is the write path for snippet templates: it validates
// input, persists through the store, and re-syncs template hotkeys after
// every change.
package templates

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/shortcut"
)

// Store is the template half of *store.Store.
type Store interface {
	CreateTemplate(ctx context.Context, t model.Template) (*model.Template, error)
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
	ListTemplates(ctx context.Context) ([]*model.Template, error)
	UpdateTemplate(ctx context.Context, id string, patch model.TemplatePatch) (*model.Template, error)
	ToggleTemplate(ctx context.Context, id string) (*model.Template, error)
	DeleteTemplate(ctx context.Context, id string) (bool, error)
}

// Syncer rebinds template hotkeys. *shortcut.Manager implements it.
type Syncer interface {
	UpdateShortcuts(ctx context.Context) (shortcut.Summary, error)
}

// Resolver expands snippets. *snippet.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, tmpl *model.Template) (string, error)
}

// ValidationError reports rejected template input. Nothing was written.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid template: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// rules is what every stored template must satisfy.
type rules struct {
	Description    string            `validate:"max=200"`
	Keywords       []string          `validate:"max=32,dive,required,max=64"`
	SnippetContent string            `validate:"required,max=65536"`
	TriggerType    model.TriggerType `validate:"required,oneof=shortcut keyword"`
	Shortcut       string            `validate:"required_if=TriggerType shortcut,max=64,accelerator"`
}

// Service implements template CRUD.
type Service struct {
	store    Store
	sync     Syncer
	resolver Resolver
	validate *validator.Validate
}

// New returns a Service. sync may be nil when no hotkeys are available.
func New(store Store, sync Syncer, resolver Resolver) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("accelerator", func(fl validator.FieldLevel) bool {
		combo := fl.Field().String()
		if combo == "" {
			return true
		}
		_, err := shortcut.ParseCombo(combo)
		return err == nil
	}); err != nil {
		panic(err)
	}
	return &Service{store: store, sync: sync, resolver: resolver, validate: v}
}

func (s *Service) check(t *model.Template) error {
	r := rules{
		Description:    t.Description,
		Keywords:       t.Keywords,
		SnippetContent: t.SnippetContent,
		TriggerType:    t.TriggerType,
		Shortcut:       t.Shortcut,
	}
	if err := s.validate.Struct(r); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// resync rebinds hotkeys. Failures never fail the write that caused them.
func (s *Service) resync(ctx context.Context) {
	if s.sync == nil {
		return
	}
	if _, err := s.sync.UpdateShortcuts(ctx); err != nil {
		slog.Error("shortcut resync failed", "err", err)
	}
}

// List returns every template, newest first.
func (s *Service) List(ctx context.Context) ([]*model.Template, error) {
	return s.store.ListTemplates(ctx)
}

// Get returns one template or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*model.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// Create validates and stores t. ID and timestamps are assigned by the
// store.
func (s *Service) Create(ctx context.Context, t model.Template) (*model.Template, error) {
	if t.TriggerType == "" {
		t.TriggerType = model.TriggerShortcut
	}
	if t.Keywords == nil {
		t.Keywords = []string{}
	}
	if err := s.check(&t); err != nil {
		return nil, err
	}
	out, err := s.store.CreateTemplate(ctx, t)
	if err != nil {
		return nil, err
	}
	s.resync(ctx)
	return out, nil
}

// Update applies patch after validating the merged result.
func (s *Service) Update(ctx context.Context, id string, patch model.TemplatePatch) (*model.Template, error) {
	cur, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *cur
	patch.Apply(&merged)
	if err := s.check(&merged); err != nil {
		return nil, err
	}

	out, err := s.store.UpdateTemplate(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.resync(ctx)
	return out, nil
}

// Toggle flips enabled.
func (s *Service) Toggle(ctx context.Context, id string) (*model.Template, error) {
	out, err := s.store.ToggleTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resync(ctx)
	return out, nil
}

// Delete removes a template and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.DeleteTemplate(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.resync(ctx)
	}
	return ok, nil
}

// Resolve expands the snippet of template id without pasting it.
func (s *Service) Resolve(ctx context.Context, id string) (string, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return "", err
	}
	out, err := s.resolver.Resolve(ctx, t)
	if err != nil {
		return "", fmt.Errorf("resolve template %s: %w", id, err)
	}
	return out, nil
}
