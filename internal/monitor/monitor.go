// Package monitor polls the system clipboard and emits one record per
// distinct content change.
//
// Every tick classifies the clipboard as files, image, text or nothing, in
// that order. A fingerprint is kept per kind; a tick emits only when the
// winning kind's fingerprint differs from the previous one. Emitting a new
// item clears the other kinds' fingerprints, so switching from text to an
// image and back to the same text captures the text again.
package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"go.klb.dev/clipkeep/internal/clip"
	"go.klb.dev/clipkeep/internal/fingerprint"
	"go.klb.dev/clipkeep/internal/metrics"
	"go.klb.dev/clipkeep/internal/model"
)

const (
	DefaultInterval = 500 * time.Millisecond
	defaultBuffer   = 32
)

// Options configures a Monitor.
type Options struct {
	// Interval between polls. Zero means DefaultInterval.
	Interval time.Duration
	// CacheDir receives captured images as PNG files. Required.
	CacheDir string
	// Buffer is the capacity of the Items channel.
	Buffer int
}

// Monitor watches a clip.Backend.
type Monitor struct {
	backend  clip.Backend
	cacheDir string
	interval time.Duration
	out      chan model.Record
	now      func() time.Time

	// mu guards the fingerprints across one tick's read-decide-update.
	mu          sync.Mutex
	lastText    string
	lastImage   string
	lastFiles   string
	filesWarned bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	ticks  sync.WaitGroup
}

// New creates the monitor and its image cache directory. It does not start
// polling.
func New(backend clip.Backend, opts Options) (*Monitor, error) {
	if opts.CacheDir == "" {
		return nil, errors.New("monitor: cache dir required")
	}
	if err := os.MkdirAll(opts.CacheDir, 0o700); err != nil {
		return nil, fmt.Errorf("monitor: image cache: %w", err)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &Monitor{
		backend:  backend,
		cacheDir: opts.CacheDir,
		interval: opts.Interval,
		out:      make(chan model.Record, opts.Buffer),
		now:      time.Now,
	}, nil
}

// Items delivers captured records. They carry no id yet.
func (m *Monitor) Items() <-chan model.Record { return m.out }

// Start begins polling. Calling Start on a running monitor logs a warning
// and does nothing. Polling stops on Stop or when ctx is done.
//
// Each tick runs in its own goroutine, so a tick that outlives the interval
// overlaps the next one. Fingerprint updates are serialised; tick work is not.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		slog.Warn("clipboard monitor already running")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	slog.Info("clipboard monitor started", "backend", m.backend.Name(), "interval", m.interval)
	go func() {
		t := time.NewTicker(m.interval)
		defer t.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-t.C:
				m.ticks.Add(1)
				go func() {
					defer m.ticks.Done()
					// in-flight ticks finish even after Stop
					m.tick(ctx)
				}()
			}
		}
	}()
}

// Stop prevents further ticks. Ticks already running complete. Stop on a
// stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	slog.Info("clipboard monitor stopped")
}

// Running reports whether the monitor is polling.
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.cancel != nil
}

// Wait blocks until every started tick has returned.
func (m *Monitor) Wait() { m.ticks.Wait() }

// tickError marks the stage a tick was abandoned at.
type tickError struct {
	stage string
	err   error
}

func (e *tickError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *tickError) Unwrap() error { return e.err }

func (m *Monitor) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("clipboard poll panicked", "panic", r)
			metrics.CaptureErrors.WithLabelValues("panic").Inc()
		}
	}()

	rec, err := m.detect()
	if err != nil {
		var te *tickError
		stage := "unknown"
		if errors.As(err, &te) {
			stage = te.stage
		}
		slog.Error("clipboard poll abandoned", "stage", stage, "err", err)
		metrics.CaptureErrors.WithLabelValues(stage).Inc()
		return
	}
	if rec == nil {
		return
	}

	metrics.Captures.WithLabelValues(string(rec.Kind())).Inc()
	slog.Debug("new clipboard item", "kind", rec.Kind(), "preview", rec.PreviewText)
	select {
	case m.out <- *rec:
	case <-ctx.Done():
		slog.Warn("clipboard item dropped, monitor shutting down", "kind", rec.Kind())
	}
}

// detect classifies the clipboard and returns a new record, or nil when
// nothing changed. Fingerprints are only touched on the success path.
func (m *Monitor) detect() (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := m.backend.Files()
	if errors.Is(err, clip.ErrUnsupported) {
		if !m.filesWarned {
			slog.Warn("file list detection unavailable on this platform", "backend", m.backend.Name())
			m.filesWarned = true
		}
		files, err = nil, nil
	}
	if err != nil {
		return nil, &tickError{"files", err}
	}
	if len(files) > 0 {
		h := fingerprint.Paths(files)
		if h == m.lastFiles {
			return nil, nil
		}
		rec := m.record(model.Files{Paths: files}, h)
		m.lastFiles, m.lastText, m.lastImage = h, "", ""
		return rec, nil
	}

	raw, err := m.backend.Image()
	if err != nil {
		return nil, &tickError{"image", err}
	}
	if len(raw) > 0 {
		data, err := canonicalPNG(raw)
		if err != nil {
			return nil, &tickError{"image_decode", err}
		}
		h := fingerprint.Bytes(data)
		if h == m.lastImage {
			return nil, nil
		}
		path, err := m.cacheImage(data)
		if err != nil {
			return nil, &tickError{"image_write", err}
		}
		rec := m.record(model.Image{Path: path}, h)
		m.lastImage, m.lastText, m.lastFiles = h, "", ""
		return rec, nil
	}

	text, err := m.backend.Text()
	if err != nil {
		return nil, &tickError{"text", err}
	}
	if len(text) > 0 {
		s := string(text)
		if strings.TrimSpace(s) == "" {
			m.lastText = ""
			return nil, nil
		}
		h := fingerprint.String(s)
		if h == m.lastText {
			return nil, nil
		}
		rec := m.record(model.Text{Text: s}, h)
		m.lastText, m.lastImage, m.lastFiles = h, "", ""
		return rec, nil
	}

	m.lastText, m.lastImage, m.lastFiles = "", "", ""
	return nil, nil
}

func (m *Monitor) record(c model.Content, hash string) *model.Record {
	rec := &model.Record{
		Content:   c,
		Timestamp: m.now().UnixMilli(),
		Hash:      hash,
	}
	rec.Derive()
	return rec
}

// canonicalPNG decodes any supported raster format and re-encodes it as PNG.
func canonicalPNG(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Monitor) cacheImage(data []byte) (string, error) {
	name := fmt.Sprintf("%s-%d.png", uuid.NewString(), m.now().UnixMilli())
	path := filepath.Join(m.cacheDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
