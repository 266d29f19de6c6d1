// Package history sits between the clipboard monitor and the store: it
// drops malformed captures, persists the rest, and announces every history
// change on the event hub.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/store"
)

// ErrInvalidRecord is returned for a capture without a hash or without content.
var ErrInvalidRecord = errors.New("history: record missing hash or content")

// Store is the subset of *store.Store the manager uses.
type Store interface {
	Add(ctx context.Context, rec *model.Record) (*model.Record, error)
	Delete(ctx context.Context, id int64) (bool, error)
	SetFavorite(ctx context.Context, id int64, fav bool) (bool, error)
	ToggleFavorite(ctx context.Context, id int64) (*model.Record, error)
	Get(ctx context.Context, id int64) (*model.Record, error)
	ClearAll(ctx context.Context) (store.ClearResult, error)
}

// Publisher receives history events.
type Publisher interface {
	Publish(hub.Event)
}

// Manager validates and forwards captures.
type Manager struct {
	store Store
	pub   Publisher
}

// New returns a Manager. pub may be nil.
func New(s Store, pub Publisher) *Manager {
	return &Manager{store: s, pub: pub}
}

func (m *Manager) publish(ev hub.Event) {
	if m.pub != nil {
		m.pub.Publish(ev)
	}
}

// Add stores rec and returns what the store returned, including nil for a
// capture the store skipped. Malformed captures are logged and rejected
// with ErrInvalidRecord.
func (m *Manager) Add(ctx context.Context, rec *model.Record) (*model.Record, error) {
	if rec == nil || rec.Hash == "" || !rec.HasContent() {
		slog.Error("invalid capture dropped: missing hash or content")
		return nil, ErrInvalidRecord
	}

	stored, err := m.store.Add(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("store capture: %w", err)
	}
	if stored == nil {
		slog.Debug("capture not added", "hash", rec.Hash)
		return nil, nil
	}
	hub.LogRecord("record stored", stored)
	m.publish(hub.Event{Type: hub.RecordAdded, Record: stored})
	return stored, nil
}

// Run stores every record from items until ctx is done or items is closed.
// Errors are logged; the loop never stops on a bad record.
func (m *Manager) Run(ctx context.Context, items <-chan model.Record) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-items:
			if !ok {
				return
			}
			if _, err := m.Add(ctx, &rec); err != nil {
				slog.Error("capture not stored", "kind", rec.Kind(), "err", err)
			}
		}
	}
}

// Delete removes a record. It reports false if id does not exist.
func (m *Manager) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := m.store.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	m.publish(hub.Event{Type: hub.RecordDeleted, ID: id})
	return true, nil
}

// SetFavorite sets the favorite flag and returns the updated record, or
// store.ErrNotFound.
func (m *Manager) SetFavorite(ctx context.Context, id int64, fav bool) (*model.Record, error) {
	ok, err := m.store.SetFavorite(ctx, id, fav)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("record %d: %w", id, store.ErrNotFound)
	}
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.publish(hub.Event{Type: hub.RecordUpdated, Record: rec})
	return rec, nil
}

// ToggleFavorite flips the favorite flag.
func (m *Manager) ToggleFavorite(ctx context.Context, id int64) (*model.Record, error) {
	rec, err := m.store.ToggleFavorite(ctx, id)
	if err != nil {
		return nil, err
	}
	m.publish(hub.Event{Type: hub.RecordUpdated, Record: rec})
	return rec, nil
}

// Clear deletes the whole history.
func (m *Manager) Clear(ctx context.Context) (store.ClearResult, error) {
	res, err := m.store.ClearAll(ctx)
	if err != nil {
		return res, err
	}
	m.publish(hub.Event{Type: hub.HistoryCleared})
	return res, nil
}
