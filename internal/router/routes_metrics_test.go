package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tinoosan/xfer/internal/metrics"
)

func TestMetricsEndpointEmitsFamilies(t *testing.T) {
	metrics.Register()
	metrics.UnitEvents.WithLabelValues("download", "start").Inc()
	metrics.AdapterTaskLatency.WithLabelValues("download").Observe(0.02)
	metrics.GateOccupancy.WithLabelValues("download").Set(2)

	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "xfer_unit_events_total") {
		t.Fatalf("missing unit_events_total in metrics: %s", body)
	}
	if !strings.Contains(body, "xfer_adapter_task_latency_seconds_count") {
		t.Fatalf("missing adapter latency histogram in metrics: %s", body)
	}
	if !strings.Contains(body, "xfer_gate_occupancy") {
		t.Fatalf("missing gate_occupancy gauge in metrics: %s", body)
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("XFER_API_TOKEN", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dl := newTestDownloadCoordinator(t)
	ul := newTestUploadCoordinator(t)
	return New(logger, dl, ul)
}
