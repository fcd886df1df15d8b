package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	readinessTimeout = 5 * time.Second
	checkTimeout     = 2 * time.Second
)

// HealthChecker is a dependency the service needs before it can take traffic.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc turns a ping function into a HealthChecker bounded by a short
// timeout.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return f(ctx)
}

// HealthStatus is the readiness report body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthHandler runs every checker and answers 503 when any of them fails.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		report := runChecks(ctx, checkers)
		code := http.StatusOK
		if report.Status != statusHealthy {
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, report)
	}
}

func runChecks(ctx context.Context, checkers map[string]HealthChecker) HealthStatus {
	report := HealthStatus{
		Status:    statusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckStatus, len(checkers)),
	}
	for name, c := range checkers {
		if err := c.Check(ctx); err != nil {
			report.Status = statusUnhealthy
			report.Checks[name] = CheckStatus{Status: statusUnhealthy, Message: err.Error()}
			continue
		}
		report.Checks[name] = CheckStatus{Status: statusHealthy}
	}
	return report
}

// ReadinessHandler answers ready for services without dependencies, such as
// the report service.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthStatus{Status: "ready", Timestamp: time.Now()})
}

// LivenessHandler only proves the process is serving.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeHealth(w http.ResponseWriter, code int, body HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
