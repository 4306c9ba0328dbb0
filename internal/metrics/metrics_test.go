package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordQuery("cache_hit")
	m.RecordQuery("cache_hit")
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheEviction()
	m.RecordRequest("success", 20*time.Millisecond)
	m.RecordStaleDiscard()
	m.RecordThrottled()
	m.RecordListenerPanic("error")
	m.RecordServerRequest("200", time.Millisecond)
	m.RecordRateLimitHit()

	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("cache_hit")); got != 2 {
		t.Errorf("queries{cache_hit} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("requests{success} = %v, want 1", got)
	}
	for name, c := range map[string]prometheus.Counter{
		"hits":      m.CacheHitsTotal,
		"misses":    m.CacheMissesTotal,
		"evictions": m.CacheEvictionsTotal,
		"stale":     m.StaleDiscardsTotal,
		"throttled": m.ThrottledTotal,
		"ratelimit": m.RateLimitHitsTotal,
	} {
		if got := testutil.ToFloat64(c); got != 1 {
			t.Errorf("%s = %v, want 1", name, got)
		}
	}
}

func TestMetrics_InFlight(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncRequestsInFlight()
	m.IncRequestsInFlight()
	m.DecRequestsInFlight()

	if got := testutil.ToFloat64(m.RequestsInFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// два экземпляра на разных регистрах не должны паниковать
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordThrottled()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "predictive_search_throttled_total 1") {
		t.Errorf("metrics output missing throttled counter:\n%s", rec.Body.String())
	}
}
