package handler

import (
	"fmt"
	"net/http"

	"github.com/citizenapp/citizenapp/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "citizenapp_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "citizenapp_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "citizenapp_logins_total{status=\"failure\"} %d\n", snap.LoginsFailed)
	writeMetric(w, "citizenapp_auth_rejected_total %d\n", snap.AuthRejected)
	writeMetric(w, "citizenapp_auth_cache_total{result=\"hit\"} %d\n", snap.AuthCacheHits)
	writeMetric(w, "citizenapp_auth_cache_total{result=\"miss\"} %d\n", snap.AuthCacheMisses)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
