// Package settings is the typed runtime settings store shared by the daemon's
// components. Values are loaded through viper (defaults → settings file →
// CLIPKEEP_* env vars), validated, and written back to the settings file on
// every successful update. Readers call the accessors on every operation;
// nothing caches a value.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Keys as they appear in the settings file and (upper-cased, with
// underscores) in CLIPKEEP_* env vars.
const (
	KeyHistoryLimit = "history-limit"
	KeyDeduplicate  = "deduplicate"
	KeyPollInterval = "poll-interval"
	KeyPasteCommand = "paste-command"
	KeyAutoPaste    = "auto-paste"
)

const (
	DefaultHistoryLimit = 500
	DefaultPollInterval = 500 * time.Millisecond
)

// Values is a snapshot of every setting.
type Values struct {
	HistoryLimit int           `json:"history_limit" validate:"gt=0,lte=1000000"`
	Deduplicate  bool          `json:"deduplicate"`
	PollInterval time.Duration `json:"poll_interval" validate:"gte=50ms,lte=1m"`
	PasteCommand string        `json:"paste_command" validate:"max=1024"`
	AutoPaste    bool          `json:"auto_paste"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	HistoryLimit *int           `json:"history_limit,omitempty"`
	Deduplicate  *bool          `json:"deduplicate,omitempty"`
	PollInterval *time.Duration `json:"poll_interval,omitempty"`
	PasteCommand *string        `json:"paste_command,omitempty"`
	AutoPaste    *bool          `json:"auto_paste,omitempty"`
}

// ValidationError reports a rejected settings value. The store is unchanged.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid settings: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Store holds the current settings.
type Store struct {
	mu       sync.RWMutex
	v        *viper.Viper
	path     string
	cur      Values
	validate *validator.Validate
}

// Open loads settings from path (which need not exist yet). An empty path
// keeps settings in memory only.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetDefault(KeyHistoryLimit, DefaultHistoryLimit)
	v.SetDefault(KeyDeduplicate, true)
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.SetDefault(KeyPasteCommand, defaultPasteCommand())
	v.SetDefault(KeyAutoPaste, true)
	v.SetEnvPrefix("CLIPKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("settings: %w", err)
			}
		}
	}

	s := &Store{v: v, path: path, validate: validator.New()}
	vals := s.fromViper()
	if err := s.check(vals); err != nil {
		return nil, err
	}
	s.cur = vals
	return s, nil
}

func (s *Store) fromViper() Values {
	return Values{
		HistoryLimit: s.v.GetInt(KeyHistoryLimit),
		Deduplicate:  s.v.GetBool(KeyDeduplicate),
		PollInterval: s.v.GetDuration(KeyPollInterval),
		PasteCommand: s.v.GetString(KeyPasteCommand),
		AutoPaste:    s.v.GetBool(KeyAutoPaste),
	}
}

func (s *Store) check(vals Values) error {
	if err := s.validate.Struct(vals); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// HistoryLimit returns the retention limit.
func (s *Store) HistoryLimit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.HistoryLimit
}

// DeduplicateEnabled reports whether identical captures update in place.
func (s *Store) DeduplicateEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Deduplicate
}

func (s *Store) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.PollInterval
}

func (s *Store) PasteCommand() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.PasteCommand
}

func (s *Store) AutoPaste() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.AutoPaste
}

// Values returns a snapshot of all settings.
func (s *Store) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// SetHistoryLimit sets the retention limit. n must be positive.
func (s *Store) SetHistoryLimit(n int) error {
	_, err := s.Update(Patch{HistoryLimit: &n})
	return err
}

// SetDeduplicateEnabled toggles deduplication for future inserts.
func (s *Store) SetDeduplicateEnabled(on bool) error {
	_, err := s.Update(Patch{Deduplicate: &on})
	return err
}

// Update validates and applies p, then persists the result. On a validation
// error nothing changes.
func (s *Store) Update(p Patch) (Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	if p.HistoryLimit != nil {
		next.HistoryLimit = *p.HistoryLimit
	}
	if p.Deduplicate != nil {
		next.Deduplicate = *p.Deduplicate
	}
	if p.PollInterval != nil {
		next.PollInterval = *p.PollInterval
	}
	if p.PasteCommand != nil {
		next.PasteCommand = *p.PasteCommand
	}
	if p.AutoPaste != nil {
		next.AutoPaste = *p.AutoPaste
	}
	if err := s.check(next); err != nil {
		return s.cur, err
	}

	s.v.Set(KeyHistoryLimit, next.HistoryLimit)
	s.v.Set(KeyDeduplicate, next.Deduplicate)
	s.v.Set(KeyPollInterval, next.PollInterval.String())
	s.v.Set(KeyPasteCommand, next.PasteCommand)
	s.v.Set(KeyAutoPaste, next.AutoPaste)
	s.cur = next

	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return next, fmt.Errorf("settings dir: %w", err)
		}
		if err := s.v.WriteConfigAs(s.path); err != nil {
			return next, fmt.Errorf("write settings: %w", err)
		}
	}
	slog.Info("settings updated",
		"history_limit", next.HistoryLimit,
		"deduplicate", next.Deduplicate,
		"poll_interval", next.PollInterval,
	)
	return next, nil
}

// Watch reloads the settings file when it is edited externally. Invalid
// edits are logged and ignored. onChange, if non-nil, receives every
// accepted snapshot.
func (s *Store) Watch(onChange func(Values)) {
	if s.path == "" {
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		s.mu.Lock()
		vals := s.fromViper()
		if err := s.check(vals); err != nil {
			s.mu.Unlock()
			slog.Warn("settings file edit rejected", "file", e.Name, "err", err)
			return
		}
		s.cur = vals
		s.mu.Unlock()
		slog.Info("settings reloaded", "file", e.Name, "op", e.Op.String())
		if onChange != nil {
			onChange(vals)
		}
	})
	s.v.WatchConfig()
}
