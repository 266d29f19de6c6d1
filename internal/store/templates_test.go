package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.klb.dev/clipkeep/internal/model"
)

func TestTemplateCRUD(t *testing.T) {
	s, _ := newTestStore(t, 10, true)
	ctx := context.Background()

	clock := time.UnixMilli(1_000)
	s.now = func() time.Time { return clock }

	created, err := s.CreateTemplate(ctx, model.Template{
		Description:    "sign-off",
		Enabled:        true,
		Keywords:       []string{"sig", "bye"},
		SnippetContent: "Regards, {now:yyyy}",
		TriggerType:    model.TriggerShortcut,
		Shortcut:       "CommandOrControl+Shift+1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.CreatedAt != 1_000 || created.UpdatedAt != 1_000 {
		t.Fatalf("created = %+v", created)
	}
	if len(created.Keywords) != 2 || created.Keywords[1] != "bye" {
		t.Fatalf("keywords = %q", created.Keywords)
	}

	clock = time.UnixMilli(2_000)
	desc := "signature"
	updated, err := s.UpdateTemplate(ctx, created.ID, model.TemplatePatch{Description: &desc})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Description != "signature" || updated.SnippetContent != created.SnippetContent {
		t.Fatalf("patch applied wrongly: %+v", updated)
	}
	if updated.UpdatedAt != 2_000 || updated.CreatedAt != 1_000 {
		t.Fatalf("timestamps = %d/%d", updated.CreatedAt, updated.UpdatedAt)
	}

	clock = time.UnixMilli(3_000)
	toggled, err := s.ToggleTemplate(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if toggled.Enabled || toggled.UpdatedAt != 3_000 {
		t.Fatalf("toggled = %+v", toggled)
	}

	second, err := s.CreateTemplate(ctx, model.Template{SnippetContent: "x", TriggerType: model.TriggerShortcut})
	if err != nil {
		t.Fatal(err)
	}
	list, err := s.ListTemplates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("list order wrong: %+v", list)
	}
	if list[0].Keywords == nil {
		t.Fatal("nil keywords not normalised")
	}

	ok, err := s.DeleteTemplate(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteTemplate = %v, %v", ok, err)
	}
	ok, err = s.DeleteTemplate(ctx, created.ID)
	if err != nil || ok {
		t.Fatalf("second DeleteTemplate = %v, %v", ok, err)
	}
}

func TestTemplateNotFound(t *testing.T) {
	s, _ := newTestStore(t, 10, true)
	ctx := context.Background()

	if _, err := s.GetTemplate(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTemplate err = %v", err)
	}
	if _, err := s.ToggleTemplate(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ToggleTemplate err = %v", err)
	}
	if _, err := s.UpdateTemplate(ctx, "missing", model.TemplatePatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTemplate err = %v", err)
	}
}
