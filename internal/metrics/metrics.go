// Package metrics holds the Prometheus collectors exported by the daemon.
//
// Collectors live in a private registry so tests and embedding programs don't
// collide with the global default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Captures counts new-item events emitted by the monitor, by kind.
	Captures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipkeep_captures_total",
			Help: "Clipboard items captured by the monitor.",
		},
		[]string{"kind"},
	)

	// CaptureErrors counts abandoned poll ticks, by stage.
	CaptureErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipkeep_capture_errors_total",
			Help: "Poll ticks abandoned because of an error.",
		},
		[]string{"stage"},
	)

	// StoreResults counts history inserts, by outcome.
	StoreResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipkeep_store_results_total",
			Help: "History insert outcomes (inserted, deduplicated, skipped, rejected).",
		},
		[]string{"result"},
	)

	Evictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipkeep_evictions_total",
		Help: "Records evicted by the retention limit.",
	})

	RetentionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipkeep_retention_errors_total",
		Help: "Failed retention passes.",
	})

	FileCleanupErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipkeep_file_cleanup_errors_total",
		Help: "Cached image files that could not be removed.",
	})

	OrphansRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipkeep_orphan_images_removed_total",
		Help: "Unreferenced cache images removed by the janitor.",
	})

	// Shortcuts is the number of currently bound template hotkeys.
	Shortcuts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clipkeep_shortcuts_bound",
		Help: "Template shortcuts currently bound to global hotkeys.",
	})

	// ShortcutRegistrations counts registration attempts by result
	// (registered, failed, skipped).
	ShortcutRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipkeep_shortcut_registrations_total",
			Help: "Template hotkey registration attempts by result.",
		},
		[]string{"result"},
	)

	// Subscribers is the number of live event subscribers.
	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clipkeep_event_subscribers",
		Help: "Live event stream subscribers.",
	})

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Captures, CaptureErrors, StoreResults,
		Evictions, RetentionErrors, FileCleanupErrors, OrphansRemoved,
		Shortcuts, ShortcutRegistrations, Subscribers,
	)
}

// Registry returns the registry holding every clipkeep collector.
func Registry() *prometheus.Registry { return registry }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
