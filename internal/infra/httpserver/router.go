package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appaudit "github.com/bryanwahyu/automaton-audit/internal/application/audit"
	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
	"github.com/bryanwahyu/automaton-audit/internal/middleware"
)

// Options configures the auditor router.
type Options struct {
	Log            *zap.Logger
	MaxUploadBytes int64
	AllowedOrigins []string
	Limiter        *middleware.RateLimiter
	Checkers       map[string]middleware.HealthChecker
}

type Router struct {
	svc       *appaudit.Service
	log       *zap.Logger
	maxUpload int64
}

func NewRouter(svc *appaudit.Service, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	r := &Router{svc: svc, log: opts.Log, maxUpload: opts.MaxUploadBytes}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(opts.Log))
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	mux.Get("/", serveIndex)
	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/healthz/live", middleware.LivenessHandler)
	mux.Get("/healthz/ready", middleware.HealthHandler(opts.Checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/sessions", func(rt chi.Router) {
		rt.Post("/", r.wrap(r.handleCreate))
		rt.Route("/{id}", func(s chi.Router) {
			s.Use(requireSessionID)
			s.Get("/", r.wrap(r.handleGet))
			s.Delete("/", r.wrap(r.handleDelete))
			s.Put("/address", r.wrap(r.handleSetAddress))
			s.Post("/file", r.wrap(r.handleSelectFile))
			s.Delete("/file", r.wrap(r.handleRemoveFile))
			s.Post("/analyze", r.wrap(r.handleAnalyze))
			s.Post("/reset", r.wrap(r.handleReset))
			s.Get("/report.pdf", r.wrap(r.handleExport))
			s.Delete("/notifications/{nid}", r.wrap(r.handleDismiss))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		status := http.StatusInternalServerError
		body := errorBody{Error: err.Error()}

		var ve *domain.ValidationError
		var ee *domain.ExportError
		switch {
		case errors.As(err, &ve):
			status = http.StatusBadRequest
			body = errorBody{Error: ve.Message, Field: ve.Field}
		case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNoticeNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrNoResult),
			errors.Is(err, domain.ErrAnalysisInFlight),
			errors.Is(err, domain.ErrExportInFlight),
			errors.Is(err, domain.ErrNotIdle):
			status = http.StatusConflict
		case errors.As(err, &ee):
			status = http.StatusBadGateway
		case errors.Is(err, domain.ErrTooManySessions):
			status = http.StatusServiceUnavailable
		}

		if status == http.StatusInternalServerError {
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func requireSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := middleware.ValidateSessionID(chi.URLParam(r, "id")); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Field: "id"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// POST /v1/sessions
func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) error {
	v, err := r.svc.Create()
	if err != nil {
		return err
	}
	w.Header().Set("Location", "/v1/sessions/"+v.ID)
	return writeJSON(w, http.StatusCreated, v)
}

// GET /v1/sessions/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	v, err := r.svc.Get(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, v)
}

// DELETE /v1/sessions/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	if err := r.svc.Delete(chi.URLParam(req, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// PUT /v1/sessions/{id}/address
// Body: {"address": "0x..."}
func (r *Router) handleSetAddress(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 4<<10)).Decode(&body); err != nil {
		return &domain.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	if err := middleware.ValidateAddressInput(body.Address); err != nil {
		return &domain.ValidationError{Field: "address", Message: err.Error()}
	}

	v, err := r.svc.SetAddress(chi.URLParam(req, "id"), middleware.SanitizeString(body.Address))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, v)
}

// POST /v1/sessions/{id}/file
// Multipart field "file". Only the file name is used; the content is discarded.
func (r *Router) handleSelectFile(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		return &domain.ValidationError{Field: "file", Message: fmt.Sprintf("invalid upload: %v", err)}
	}
	defer req.MultipartForm.RemoveAll()

	f, hdr, err := req.FormFile("file")
	if err != nil {
		return &domain.ValidationError{Field: "file", Message: "Please select a file to upload."}
	}
	f.Close()

	if err := middleware.ValidateFileName(hdr.Filename); err != nil {
		return &domain.ValidationError{Field: "file", Message: err.Error()}
	}

	v, err := r.svc.SelectFile(chi.URLParam(req, "id"), hdr.Filename)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, v)
}

// DELETE /v1/sessions/{id}/file
func (r *Router) handleRemoveFile(w http.ResponseWriter, req *http.Request) error {
	v, err := r.svc.RemoveFile(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, v)
}

// POST /v1/sessions/{id}/analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	v, err := r.svc.StartAnalysis(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, v)
}

// POST /v1/sessions/{id}/reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	v, err := r.svc.Reset(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, v)
}

// GET /v1/sessions/{id}/report.pdf
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	doc, err := r.svc.Export(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	_, err = w.Write(doc.Body)
	return err
}

// DELETE /v1/sessions/{id}/notifications/{nid}
func (r *Router) handleDismiss(w http.ResponseWriter, req *http.Request) error {
	if err := r.svc.Dismiss(chi.URLParam(req, "id"), chi.URLParam(req, "nid")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
