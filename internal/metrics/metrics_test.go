package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_ExposesRecordedValues(t *testing.T) {
	m := New()
	m.CountryFinished("reported", 2*time.Second)
	m.CacheHit("sam")
	m.CacheMiss("warehouse")
	m.FetchFailed("mcb")
	m.SetBreakerState("mcb", "open")
	m.SetQueueDepth(7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`broadcast_review_country_runs_total{outcome="reported"} 1`,
		`broadcast_review_fetch_cache_total{result="hit",source="sam"} 1`,
		`broadcast_review_fetch_failures_total{source="mcb"} 1`,
		`broadcast_review_source_breaker_state{source="mcb"} 2`,
		`broadcast_review_queue_depth 7`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.CountryFinished("failed", time.Second)
	m.CacheHit("sam")
	m.SetBreakerState("sam", "closed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("expected 404 from nil metrics, got %d", rec.Code)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.SetQueueDepth(1)
	b.SetQueueDepth(2)

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}
