package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores process-wide counters.
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	AnalysesStarted    uint64
	AnalysesCompleted  uint64
	ExportsTotal       uint64
	ExportsFailed      uint64
	ReportsRendered    uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

func IncrementRequests() { atomic.AddUint64(&globalMetrics.RequestsTotal, 1) }
func IncrementInProgress() { atomic.AddUint64(&globalMetrics.RequestsInProgress, 1) }
func DecrementInProgress() { atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0)) }
func IncrementSuccess() { atomic.AddUint64(&globalMetrics.RequestsSuccess, 1) }
func IncrementFailed() { atomic.AddUint64(&globalMetrics.RequestsFailed, 1) }
func IncrementReportsRendered() { atomic.AddUint64(&globalMetrics.ReportsRendered, 1) }

// Recorder feeds analysis and export events from the auditor service into
// the global counters.
type Recorder struct{}

func (Recorder) AnalysisStarted() { atomic.AddUint64(&globalMetrics.AnalysesStarted, 1) }
func (Recorder) AnalysisCompleted() { atomic.AddUint64(&globalMetrics.AnalysesCompleted, 1) }

func (Recorder) ExportFinished(err error) {
	atomic.AddUint64(&globalMetrics.ExportsTotal, 1)
	if err != nil {
		atomic.AddUint64(&globalMetrics.ExportsFailed, 1)
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	started := atomic.LoadUint64(&globalMetrics.AnalysesStarted)
	completed := atomic.LoadUint64(&globalMetrics.AnalysesCompleted)
	running := uint64(0)
	if started > completed {
		running = started - completed
	}

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"analyses_started":     started,
		"analyses_completed":   completed,
		"analyses_unfinished":  running,
		"exports_total":        atomic.LoadUint64(&globalMetrics.ExportsTotal),
		"exports_failed":       atomic.LoadUint64(&globalMetrics.ExportsFailed),
		"reports_rendered":     atomic.LoadUint64(&globalMetrics.ReportsRendered),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
