package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.klb.dev/clipkeep/internal/fingerprint"
	"go.klb.dev/clipkeep/internal/hub"
	"go.klb.dev/clipkeep/internal/model"
	"go.klb.dev/clipkeep/internal/store"
)

type staticSettings struct{}

func (staticSettings) HistoryLimit() int        { return 100 }
func (staticSettings) DeduplicateEnabled() bool { return true }

func newManager(t *testing.T) (*Manager, *hub.ChanSubscriber) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "h.db"), staticSettings{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	h := hub.New()
	sub := hub.NewChanSubscriber("test", 16)
	h.Subscribe(sub)
	return New(s, h), sub
}

func capture(text string) *model.Record {
	r := &model.Record{Content: model.Text{Text: text}, Hash: fingerprint.String(text), Timestamp: time.Now().UnixMilli()}
	r.Derive()
	return r
}

func TestAddRejectsInvalid(t *testing.T) {
	m, sub := newManager(t)
	ctx := context.Background()

	for name, rec := range map[string]*model.Record{
		"nil":        nil,
		"no hash":    {Content: model.Text{Text: "x"}},
		"no content": {Hash: "abc"},
		"empty text": {Content: model.Text{}, Hash: "abc"},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := m.Add(ctx, rec)
			if !errors.Is(err, ErrInvalidRecord) || out != nil {
				t.Fatalf("Add = %v, %v", out, err)
			}
		})
	}
	if len(sub.Events()) != 0 {
		t.Fatal("event published for rejected capture")
	}
}

func TestAddPublishesStoredRecord(t *testing.T) {
	m, sub := newManager(t)
	out, err := m.Add(context.Background(), capture("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if out.ID == 0 {
		t.Fatal("stored record has no id")
	}
	ev := <-sub.Events()
	if ev.Type != hub.RecordAdded || ev.Record.ID != out.ID {
		t.Fatalf("event = %+v", ev)
	}
}

func TestRunDrainsChannel(t *testing.T) {
	m, sub := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	items := make(chan model.Record, 2)
	items <- *capture("one")
	items <- model.Record{} // invalid, logged and skipped
	close(items)
	m.Run(ctx, items)

	if got := len(sub.Events()); got != 1 {
		t.Fatalf("events = %d, want 1", got)
	}
}

func TestMutationsPublish(t *testing.T) {
	m, sub := newManager(t)
	ctx := context.Background()
	rec, err := m.Add(ctx, capture("fav me"))
	if err != nil {
		t.Fatal(err)
	}
	<-sub.Events()

	if _, err := m.SetFavorite(ctx, rec.ID, true); err != nil {
		t.Fatal(err)
	}
	if ev := <-sub.Events(); ev.Type != hub.RecordUpdated || !ev.Record.Favorite {
		t.Fatalf("event = %+v", ev)
	}
	if _, err := m.SetFavorite(ctx, 999, true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("SetFavorite(999) err = %v", err)
	}

	ok, err := m.Delete(ctx, rec.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if ev := <-sub.Events(); ev.Type != hub.RecordDeleted || ev.ID != rec.ID {
		t.Fatalf("event = %+v", ev)
	}

	if _, err := m.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if ev := <-sub.Events(); ev.Type != hub.HistoryCleared {
		t.Fatalf("event = %+v", ev)
	}
}
