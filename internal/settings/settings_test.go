package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.HistoryLimit(); got != DefaultHistoryLimit {
		t.Errorf("HistoryLimit = %d, want %d", got, DefaultHistoryLimit)
	}
	if !s.DeduplicateEnabled() {
		t.Error("deduplicate should default to on")
	}
	if got := s.PollInterval(); got != DefaultPollInterval {
		t.Errorf("PollInterval = %v", got)
	}
}

func TestUpdateRejectsInvalid(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		patch Patch
	}{
		{"zero limit", Patch{HistoryLimit: ptr(0)}},
		{"negative limit", Patch{HistoryLimit: ptr(-5)}},
		{"poll too fast", Patch{PollInterval: ptr(time.Millisecond)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Update(tt.patch)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if s.HistoryLimit() != DefaultHistoryLimit || s.PollInterval() != DefaultPollInterval {
				t.Fatal("state mutated by rejected update")
			}
		})
	}
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetHistoryLimit(3); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDeduplicateEnabled(false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.HistoryLimit() != 3 || again.DeduplicateEnabled() {
		t.Fatalf("reloaded values = %+v", again.Values())
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CLIPKEEP_HISTORY_LIMIT", "42")
	s, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.HistoryLimit(); got != 42 {
		t.Fatalf("HistoryLimit = %d, want 42", got)
	}
}

func ptr[T any](v T) *T { return &v }
