package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersExposed(t *testing.T) {
	before := testutil.ToFloat64(Captures.WithLabelValues("text"))
	Captures.WithLabelValues("text").Inc()
	if got := testutil.ToFloat64(Captures.WithLabelValues("text")); got != before+1 {
		t.Fatalf("captures = %v, want %v", got, before+1)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"clipkeep_captures_total",
		"clipkeep_shortcuts_bound",
		"clipkeep_event_subscribers",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition lacks %s", name)
		}
	}
}
