package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
	"github.com/bryanwahyu/automaton-audit/internal/middleware"
)

const maxReportBody = 1 << 20

// NewReportRouter serves the report generation service consumed by the
// auditor's export path.
func NewReportRouter(renderer domain.ReportRenderer, log *zap.Logger, allowedOrigins []string) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/healthz/live", middleware.LivenessHandler)
	mux.Get("/healthz/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	// POST /generate-report
	// Body: JSON AnalysisResult. Responds with application/pdf.
	mux.Post("/generate-report", func(w http.ResponseWriter, req *http.Request) {
		var res domain.AnalysisResult
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxReportBody))
		if err := dec.Decode(&res); err != nil {
			http.Error(w, fmt.Sprintf("invalid analysis result: %v", err), http.StatusBadRequest)
			return
		}
		if err := validateResult(&res); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		pdf, err := renderer.Render(&res)
		if err != nil {
			log.Error("render report", zap.String("address", res.Identifier), zap.Error(err))
			http.Error(w, "could not render report", http.StatusInternalServerError)
			return
		}
		middleware.IncrementReportsRendered()

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.ReportFilename(res.Identifier)))
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		w.Write(pdf)
	})

	return mux
}

func validateResult(r *domain.AnalysisResult) error {
	if strings.TrimSpace(r.Identifier) == "" {
		return fmt.Errorf("address is required")
	}
	switch r.Severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh:
	default:
		return fmt.Errorf("unknown severity %q", r.Severity)
	}
	if r.VulnerabilitiesFound < 0 {
		return fmt.Errorf("vulnerabilitiesFound must not be negative")
	}
	return nil
}
