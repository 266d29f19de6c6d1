package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"go.klb.dev/clipkeep/internal/model"
)

const templateColumns = `id, description, enabled, keywords, snippet_content, trigger_type,
	created_at, updated_at, shortcut`

func scanTemplate(row scanner) (*model.Template, error) {
	var (
		t        model.Template
		enabled  int
		keywords string
		trigger  string
		shortcut sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Description, &enabled, &keywords, &t.SnippetContent,
		&trigger, &t.CreatedAt, &t.UpdatedAt, &shortcut); err != nil {
		return nil, err
	}
	t.Enabled = enabled != 0
	t.TriggerType = model.TriggerType(trigger)
	t.Shortcut = shortcut.String
	if err := json.Unmarshal([]byte(keywords), &t.Keywords); err != nil {
		slog.Error("stored template keywords unreadable", "id", t.ID, "err", err)
	}
	if t.Keywords == nil {
		t.Keywords = []string{}
	}
	return &t, nil
}

func encodeKeywords(kw []string) (string, error) {
	if kw == nil {
		kw = []string{}
	}
	b, err := json.Marshal(kw)
	if err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}
	return string(b), nil
}

// CreateTemplate stores t under a new id and returns the stored row.
// ID, CreatedAt and UpdatedAt on t are ignored.
func (s *Store) CreateTemplate(ctx context.Context, t model.Template) (*model.Template, error) {
	kw, err := encodeKeywords(t.Keywords)
	if err != nil {
		return nil, err
	}
	now := s.now().UnixMilli()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Description, boolInt(t.Enabled), kw, t.SnippetContent,
		string(t.TriggerType), t.CreatedAt, t.UpdatedAt, nullString(t.Shortcut),
	)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	slog.Info("template created", "id", t.ID, "shortcut", t.Shortcut)
	return s.GetTemplate(ctx, t.ID)
}

// GetTemplate returns the template with id, or ErrNotFound.
func (s *Store) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns every template, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]*model.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := []*model.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTemplate applies patch to the template with id and refreshes
// updated_at.
func (s *Store) UpdateTemplate(ctx context.Context, id string, patch model.TemplatePatch) (*model.Template, error) {
	t, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(t)
	if err := s.writeTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ToggleTemplate flips enabled. The read and the write are separate
// statements, so concurrent toggles of one id race and the last write wins.
func (s *Store) ToggleTemplate(ctx context.Context, id string) (*model.Template, error) {
	t, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Enabled = !t.Enabled
	if err := s.writeTemplate(ctx, t); err != nil {
		return nil, err
	}
	slog.Info("template toggled", "id", id, "enabled", t.Enabled)
	return t, nil
}

func (s *Store) writeTemplate(ctx context.Context, t *model.Template) error {
	kw, err := encodeKeywords(t.Keywords)
	if err != nil {
		return err
	}
	t.UpdatedAt = s.now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE templates
		 SET description = ?, enabled = ?, keywords = ?, snippet_content = ?,
		     trigger_type = ?, shortcut = ?, updated_at = ?
		 WHERE id = ?`,
		t.Description, boolInt(t.Enabled), kw, t.SnippetContent,
		string(t.TriggerType), nullString(t.Shortcut), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update template %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTemplate removes a template. It reports false if no template had
// that id.
func (s *Store) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete template %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		slog.Info("template deleted", "id", id)
	}
	return n > 0, nil
}
