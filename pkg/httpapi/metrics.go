package httpapi

import (
	"fmt"
	"net/http"
)

// handleMetrics emits a minimal hand-written Prometheus text exposition.
// The spec explicitly places the metrics exposition format out of scope for
// the core; this is the ambient stub carried anyway (§7 of SPEC_FULL.md),
// not a full OpenTelemetry pipeline.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintln(w, "# HELP hermes_rate_limit_capacity Configured per-org token bucket capacity.")
	fmt.Fprintln(w, "# TYPE hermes_rate_limit_capacity gauge")
	fmt.Fprintf(w, "hermes_rate_limit_capacity %g\n", s.cfg.RateLimit.Capacity)

	fmt.Fprintln(w, "# HELP hermes_rate_limit_per_second Configured per-org token bucket refill rate.")
	fmt.Fprintln(w, "# TYPE hermes_rate_limit_per_second gauge")
	fmt.Fprintf(w, "hermes_rate_limit_per_second %g\n", s.cfg.RateLimit.PerSecond)

	fmt.Fprintln(w, "# HELP hermes_queue_capacity Configured job queue channel capacity.")
	fmt.Fprintln(w, "# TYPE hermes_queue_capacity gauge")
	fmt.Fprintf(w, "hermes_queue_capacity %d\n", s.cfg.Queue.Capacity)
}
