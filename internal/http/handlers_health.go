package httpx

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// DependencyPinger reports reachability of the backing database.
// *sql.DB satisfies it.
type DependencyPinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker reports reachability of an optional dependency such as Redis.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandlers serves readiness/liveness checks. Either dependency may be
// nil; its check is then omitted from the report.
type HealthHandlers struct {
	DB    DependencyPinger
	Cache HealthChecker
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health returns 200 with per-dependency detail while everything is
// reachable, 503 once any dependency check fails. HEAD requests get the
// status code alone.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			report.Checks["database"] = err.Error()
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			report.Checks["database"] = "ok"
		}
	}

	if h.Cache != nil {
		if err := h.Cache.Health(ctx); err != nil {
			report.Checks["redis"] = err.Error()
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			report.Checks["redis"] = "ok"
		}
	}

	if len(report.Checks) == 0 {
		report.Checks = nil
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}

	WriteJSON(w, code, report)
}
