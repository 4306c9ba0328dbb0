package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/predictive-search/internal/catalog"
	"github.com/kitbuilder587/predictive-search/internal/domain"
	"github.com/kitbuilder587/predictive-search/internal/metrics"
	"github.com/kitbuilder587/predictive-search/internal/ratelimit"
	"github.com/kitbuilder587/predictive-search/internal/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	srv     *Server
	store   *catalog.MockStore
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *testServer {
	t.Helper()

	store := catalog.NewMockStore(
		domain.Product{Title: "Snowboard Pro", Price: "699.00", Available: true},
		domain.Product{Title: "Snow Boots", Price: "120.00", Available: false},
		domain.Product{Title: "Ski Wax", Price: "9.99", Available: true},
		domain.Product{Title: "Winter Snowboard", Price: "499.00", Available: true},
	)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	srv := New(Deps{
		Store:    store,
		Limiter:  limiter,
		Logger:   zap.NewNop(),
		Metrics:  m,
		Gatherer: reg,
	})
	return &testServer{srv: srv, store: store, metrics: m, reg: reg}
}

func (ts *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func suggestURL(query string, extra url.Values) string {
	v := url.Values{}
	if query != "" {
		v.Set("query", query)
	}
	for k, vals := range extra {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	return "/search/suggest.json?" + v.Encode()
}

func decodeProducts(t *testing.T, rec *httptest.ResponseRecorder) []search.ProductResult {
	t.Helper()
	var body struct {
		Resources struct {
			Results struct {
				Products []search.ProductResult `json:"products"`
			} `json:"results"`
		} `json:"resources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return body.Resources.Results.Products
}

func TestSuggest_Success(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, suggestURL("snow", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	products := decodeProducts(t, rec)
	if len(products) != 3 {
		t.Fatalf("got %d products, want 3", len(products))
	}
	// совпадения с начала названия идут первыми
	if products[2].Title != "Winter Snowboard" {
		t.Errorf("last product = %q, want Winter Snowboard", products[2].Title)
	}
	if products[0].URL != "/products/snow-boots" {
		t.Errorf("URL = %q", products[0].URL)
	}

	if got := testutil.ToFloat64(ts.metrics.ServerRequestsTotal.WithLabelValues("200")); got != 1 {
		t.Errorf("server requests{200} = %v, want 1", got)
	}
}

func TestSuggest_MissingQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, target := range []string{"/search/suggest.json", suggestURL("   ", nil)} {
		rec := ts.get(t, target)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want 422", target, rec.Code)
		}
	}
	if ts.store.CallCount != 0 {
		t.Errorf("store called %d times, want 0", ts.store.CallCount)
	}
}

func TestSuggest_InvalidParams(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name  string
		extra url.Values
	}{
		{"limit not a number", url.Values{"resources[limit]": {"ten"}}},
		{"limit too big", url.Values{"resources[limit]": {"11"}}},
		{"unknown type", url.Values{"resources[type]": {"video"}}},
		{"bad unavailable mode", url.Values{"resources[options][unavailable_products]": {"drop"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get(t, suggestURL("snow", tt.extra))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestSuggest_Limit(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, suggestURL("snow", url.Values{"resources[limit]": {"1"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeProducts(t, rec); len(got) != 1 {
		t.Errorf("got %d products, want 1", len(got))
	}
}

func TestSuggest_UnavailableProducts(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		mode      string
		wantLen   int
		wantLast  string
		wantFirst string
	}{
		{mode: "show", wantLen: 3, wantFirst: "Snow Boots"},
		{mode: "hide", wantLen: 2, wantLast: "Winter Snowboard"},
		{mode: "last", wantLen: 3, wantLast: "Snow Boots"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			rec := ts.get(t, suggestURL("snow", url.Values{"resources[options][unavailable_products]": {tt.mode}}))
			products := decodeProducts(t, rec)
			if len(products) != tt.wantLen {
				t.Fatalf("got %d products, want %d", len(products), tt.wantLen)
			}
			if tt.wantLast != "" && products[len(products)-1].Title != tt.wantLast {
				t.Errorf("last = %q, want %q", products[len(products)-1].Title, tt.wantLast)
			}
			if tt.wantFirst != "" && products[0].Title != tt.wantFirst {
				t.Errorf("first = %q, want %q", products[0].Title, tt.wantFirst)
			}
		})
	}
}

func TestSuggest_OtherTypesEmpty(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, suggestURL("snow", url.Values{"resources[type]": {"page,collection"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ts.store.CallCount != 0 {
		t.Errorf("store called for non-product types")
	}

	var body map[string]map[string]map[string][]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	results := body["resources"]["results"]
	if _, ok := results["pages"]; !ok {
		t.Error("pages key missing")
	}
	if _, ok := results["collections"]; !ok {
		t.Error("collections key missing")
	}
	if _, ok := results["products"]; ok {
		t.Error("products key should be absent")
	}
}

func TestSuggest_StoreError(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.store.Err = errors.New("connection refused")

	rec := ts.get(t, suggestURL("snow", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Error("internal error leaked to client")
	}
}

func TestSuggest_RateLimited(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 2})
	defer limiter.Stop()
	ts := newTestServer(t, limiter)

	for i := 0; i < 2; i++ {
		if rec := ts.get(t, suggestURL("snow", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	rec := ts.get(t, suggestURL("snow", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" && got != "59" {
		t.Errorf("Retry-After = %q, want ~60", got)
	}
	if got := testutil.ToFloat64(ts.metrics.RateLimitHitsTotal); got != 1 {
		t.Errorf("rate limit hits = %v, want 1", got)
	}
	if ts.store.CallCount != 2 {
		t.Errorf("store calls = %d, want 2", ts.store.CallCount)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.get(t, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	ts.get(t, suggestURL("snow", nil))
	rec := ts.get(t, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "suggest_server_requests_total") {
		t.Errorf("metrics output missing server counter:\n%s", rec.Body.String())
	}
}

func TestRunShutdown(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ts.srv.Run(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
