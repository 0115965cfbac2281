package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	m := NewMetrics("weddingplanner_test")
	m.ObserveGeneration("plan", "ok", 2*time.Second)
	m.ObserveGeneration("plan", "ok", time.Second)
	m.ObserveAuthorizationRetry("image")
	m.ObserveHTTPRequest("/v1/plan", http.StatusBadGateway)

	if got := testutil.ToFloat64(m.Generations.WithLabelValues("plan", "ok")); got != 2 {
		t.Fatalf("generations_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/plan", "5xx")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "weddingplanner_test_authorization_retries_total") {
		t.Fatalf("exposition missing retry counter:\n%s", rec.Body.String())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration("plan", "ok", time.Second)
	m.ObserveCredentialPrompt("selected")
	m.VideoJobStarted()
	m.VideoJobFinished()
	m.ObserveVideoPolls(3)
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 202: "2xx", 304: "3xx", 428: "4xx", 504: "5xx"}
	for status, want := range cases {
		if got := statusClass(status); got != want {
			t.Fatalf("statusClass(%d) = %s, want %s", status, got, want)
		}
	}
}
