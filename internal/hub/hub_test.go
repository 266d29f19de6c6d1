package hub

import (
	"testing"

	"go.klb.dev/clipkeep/internal/model"
)

func TestPublishFansOut(t *testing.T) {
	h := New()
	a := NewChanSubscriber("a", 4)
	b := NewChanSubscriber("b", 4)
	h.Subscribe(a)
	h.Subscribe(b)

	rec := &model.Record{ID: 1, Content: model.Text{Text: "x"}}
	h.Publish(Event{Type: RecordAdded, Record: rec})

	for _, s := range []*ChanSubscriber{a, b} {
		select {
		case ev := <-s.Events():
			if ev.Record.ID != 1 || ev.Type != RecordAdded {
				t.Fatalf("%s got %+v", s.ID(), ev)
			}
		default:
			t.Fatalf("%s received nothing", s.ID())
		}
	}

	h.Unsubscribe(a)
	h.Publish(Event{Type: HistoryCleared})
	if len(a.Events()) != 0 {
		t.Fatal("unsubscribed subscriber still receives")
	}
	if h.Len() != 1 {
		t.Fatalf("Len = %d, want 1", h.Len())
	}
}

func TestFullSubscriberDoesNotBlock(t *testing.T) {
	h := New()
	s := NewChanSubscriber("slow", 1)
	h.Subscribe(s)
	h.Publish(Event{Type: RecordDeleted, ID: 1})
	h.Publish(Event{Type: RecordDeleted, ID: 2})

	ev := <-s.Events()
	if ev.ID != 1 {
		t.Fatalf("kept event %d, want 1", ev.ID)
	}
	if len(s.Events()) != 0 {
		t.Fatal("overflow event was queued")
	}
}
