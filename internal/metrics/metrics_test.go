package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/jobs", http.NoBody))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/jobs", "400")); v < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", v)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_UnknownRoute(t *testing.T) {
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/raw", http.NoBody))

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "200")); v < 1 {
		t.Errorf("expected unknown path label, got %f", v)
	}
}

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(SourcePostingsTotal.WithLabelValues("metrics-test"))
	ObserveFetch("metrics-test", "ok", 3, 250*time.Millisecond)
	ObserveFetch("metrics-test", "empty", 0, time.Second)

	if got := testutil.ToFloat64(SourcePostingsTotal.WithLabelValues("metrics-test")) - before; got != 3 {
		t.Errorf("expected 3 postings recorded, got %f", got)
	}
	if v := testutil.ToFloat64(SourceFetchesTotal.WithLabelValues("metrics-test", "empty")); v < 1 {
		t.Errorf("expected empty fetch recorded, got %f", v)
	}
}

func TestObserveRunAndCache(t *testing.T) {
	ObserveRun("parallel", "ok", time.Second)
	if v := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("parallel", "ok")); v < 1 {
		t.Errorf("expected run recorded, got %f", v)
	}

	hits := testutil.ToFloat64(CacheTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheTotal.WithLabelValues("miss"))
	CacheHit(true)
	CacheHit(false)
	CacheHit(false)
	if got := testutil.ToFloat64(CacheTotal.WithLabelValues("hit")) - hits; got != 1 {
		t.Errorf("expected 1 hit, got %f", got)
	}
	if got := testutil.ToFloat64(CacheTotal.WithLabelValues("miss")) - misses; got != 2 {
		t.Errorf("expected 2 misses, got %f", got)
	}
}
