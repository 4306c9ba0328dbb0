package predictive

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/predictive-search/internal/search"
	"github.com/kitbuilder587/predictive-search/internal/search/storefront"
)

// Сквозные проверки на реальном HTTP клиенте и реальных таймерах.

func newHTTPClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	suggester, err := storefront.New(storefront.Config{BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("storefront.New() error = %v", err)
	}

	client, err := New(defaultConfig(), Deps{Suggester: suggester, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, &calls
}

func TestClientHTTP_Throttled(t *testing.T) {
	client, _ := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Retry-After", "1000")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	errs := make(chan error, 1)
	client.OnError(func(err error) { errs <- err })

	client.Query("The Caling")

	select {
	case err := <-errs:
		var te *search.ThrottledError
		if !errors.As(err, &te) || te.RetryAfter != 1000 || te.Name() != "Throttled" {
			t.Fatalf("error = %#v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error event")
	}

	if retryAfter, ok := client.RetryAfter(); !ok || retryAfter != 1000 {
		t.Errorf("RetryAfter() = %d, %v", retryAfter, ok)
	}
}

func TestClientHTTP_BurstAndCache(t *testing.T) {
	client, calls := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(callingBody))
	})

	successes := make(chan *search.Result, 4)
	client.OnSuccess(func(r *search.Result) { successes <- r })

	for i := 0; i < 5; i++ {
		client.Query("The Calling")
	}

	select {
	case r := <-successes:
		if r.Query != "The Calling" {
			t.Errorf("result query = %q", r.Query)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no success event")
	}

	time.Sleep(3 * client.DebounceRate())
	client.Query("The Calling")
	<-successes

	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}
