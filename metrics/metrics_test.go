package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStartedRecordsOutcome(t *testing.T) {
	m := New()

	done := m.Started()
	if got := testutil.ToFloat64(m.InFlight); got != 1 {
		t.Errorf("expected 1 in flight, got %v", got)
	}

	done("failed", "poll_timeout")

	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Errorf("expected 0 in flight, got %v", got)
	}
	if got := testutil.ToFloat64(m.AnalysesStarted); got != 1 {
		t.Errorf("expected 1 started, got %v", got)
	}
	if got := testutil.ToFloat64(m.AnalysesFinished.WithLabelValues("failed", "poll_timeout")); got != 1 {
		t.Errorf("expected 1 poll timeout, got %v", got)
	}
	if n := testutil.CollectAndCount(m.AnalysisDuration); n != 1 {
		t.Errorf("expected 1 duration series, got %d", n)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Started()("done", "")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "vidsight_analyses_finished_total") {
		t.Error("expected analyses counter in output")
	}
}

func TestInstrumentCountsRequests(t *testing.T) {
	m := New()
	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("get", "418")); got != 1 {
		t.Errorf("expected one counted request, got %v", got)
	}
}
