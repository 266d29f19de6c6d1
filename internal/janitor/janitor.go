// Package janitor periodically removes cached images that no history record
// references. Such orphans appear when the daemon dies between writing an
// image and storing its record, or when a best-effort delete failed.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"

	"go.klb.dev/clipkeep/internal/metrics"
)

const (
	DefaultInterval = time.Hour
	// DefaultGrace must exceed the time between the monitor caching an image
	// and the store committing its row.
	DefaultGrace = 10 * time.Minute
)

// ImageLister returns every image path referenced by a record.
type ImageLister interface {
	ImagePaths(ctx context.Context) ([]string, error)
}

// Options configures a Janitor. Zero durations use the defaults.
type Options struct {
	Dir      string
	Interval time.Duration
	Grace    time.Duration
}

// Janitor runs the sweep on a gocron schedule.
type Janitor struct {
	sched gocron.Scheduler
	store ImageLister
	opts  Options
}

// New returns a stopped Janitor.
func New(store ImageLister, opts Options) (*Janitor, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("janitor scheduler: %w", err)
	}
	return &Janitor{sched: s, store: store, opts: opts}, nil
}

// Start schedules the sweep, running it once immediately.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.sched.NewJob(
		gocron.DurationJob(j.opts.Interval),
		gocron.NewTask(j.run, ctx),
		gocron.WithName("orphan-image-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("janitor job: %w", err)
	}
	j.sched.Start()
	slog.Info("janitor started", "dir", j.opts.Dir, "interval", j.opts.Interval, "grace", j.opts.Grace)
	return nil
}

// Stop waits for a running sweep and stops the schedule.
func (j *Janitor) Stop() error {
	return j.sched.Shutdown()
}

func (j *Janitor) run(ctx context.Context) {
	n, err := Sweep(ctx, j.store, j.opts.Dir, j.opts.Grace, time.Now())
	if err != nil {
		slog.Error("orphan sweep failed", "err", err)
		return
	}
	if n > 0 {
		slog.Info("orphan images removed", "count", n)
	}
}

// Sweep deletes .png files in dir that are not referenced and were last
// modified before now-grace. It returns the number removed. Removal
// failures are logged and skipped.
func Sweep(ctx context.Context, store ImageLister, dir string, grace time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	paths, err := store.ImagePaths(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[filepath.Clean(p)] = true
	}

	cutoff := now.Add(-grace)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if referenced[filepath.Clean(path)] {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("orphan image not removed", "path", path, "err", err)
			metrics.FileCleanupErrors.Inc()
			continue
		}
		removed++
	}
	metrics.OrphansRemoved.Add(float64(removed))
	return removed, nil
}
