package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
)

func TestNormalizePathCollapsesItemIDs(t *testing.T) {
	cases := map[string]string{
		"/v1/batch":                          "/v1/batch",
		"/v1/batch/items/ab12cd34-3/preview": "/v1/batch/items/{item_id}/preview",
		"/v1/batch/items/ab12cd34-3":         "/v1/batch/items/{item_id}",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareExposesRequestCounters(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/batch", nil))
	m.RecordRename("api", "gemini", time.Second, nil)

	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := res.Body.String()
	if !strings.Contains(body, `renamer_http_requests_total{method="GET",path="/v1/batch",service="api",status="418"} 1`) {
		t.Fatalf("request counter missing:\n%s", body)
	}
	if !strings.Contains(body, `renamer_naming_requests_total{outcome="success",provider="gemini",service="api"} 1`) {
		t.Fatalf("naming counter missing:\n%s", body)
	}
}

func TestRenamerMetricsShareRegistry(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	renamer := NewRenamerMetrics("api", m.Registerer())

	renamer.ObserveItem(domain.StatusReady, 2*time.Second)
	renamer.ObserveRun(domain.RunReport{Processed: 1, Ready: 1, Duration: 2 * time.Second})
	renamer.ObserveArchive(&domain.Archive{Entries: []string{"a.png"}, Data: make([]byte, 10)}, nil)
	renamer.ObserveArchive(nil, domain.WrapError(domain.ErrNothingToArchive, "build", errors.New("none")))

	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := res.Body.String()
	for _, want := range []string{
		`renamer_batch_items_settled_total{service="api",status="ready"} 1`,
		`renamer_batch_runs_total{service="api"} 1`,
		`renamer_archive_builds_total{outcome="empty",service="api"} 1`,
		`renamer_archive_builds_total{outcome="success",service="api"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in:\n%s", want, body)
		}
	}
}

func TestRenamerMetricsRejectDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewRenamerMetrics("cli", registry)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	NewRenamerMetrics("cli", registry)
}
