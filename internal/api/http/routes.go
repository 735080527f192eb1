// Package http exposes the OMR pipeline, grade computation and the template
// catalog over HTTP.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/mindengage-omr/internal/auth"
	"github.com/mind-engage/mindengage-omr/internal/omr"
	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/storage"
	"github.com/mind-engage/mindengage-omr/internal/templatestore"
)

type Deps struct {
	Templates templatestore.Store
	Blobs     storage.BlobStore // nil disables /scan-blobs
	Pipeline  *omr.Pipeline
	Profile   profile.Profile // used when a request names none
	MaxUpload int64           // bytes per scan request
	Auth      *auth.AuthService
	Log       *slog.Logger
}

type handlers struct{ Deps }

// Routes mounts every endpoint. Template writes and scans go through bearer
// auth when d.Auth is set.
func Routes(d Deps) chi.Router {
	if d.Pipeline == nil {
		d.Pipeline = omr.New()
	}
	if d.Profile.Name == "" {
		d.Profile = profile.Lookup("")
	}
	if d.MaxUpload <= 0 {
		d.MaxUpload = 32 << 20
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	h := &handlers{d}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/profiles", h.listProfiles)
	r.Post("/grade", h.grade)
	r.Get("/templates", h.listTemplates)
	r.Get("/templates/{id}", h.getTemplate)

	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth.Middleware)
			r.Use(auth.Require(auth.PermTemplateWrite))
		}
		r.Put("/templates/{id}", h.putTemplate)
	})
	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth.Middleware)
			r.Use(auth.Require(auth.PermScanRun))
		}
		r.Post("/templates/{id}/scan", h.scanUpload)
		r.Post("/templates/{id}/scan-blobs", h.scanBlobs)
	})
	return r
}

// RequestLogger logs one line per request with its chi request ID.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"dur", time.Since(start),
				"req_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := classify(err); status >= http.StatusInternalServerError {
		h.Log.Error("request failed", "path", r.URL.Path, "err", err, "req_id", middleware.GetReqID(r.Context()))
	}
	writeError(w, err)
}
