// Package httpserver exposes the backup trigger, health and metrics endpoints.
package httpserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semmidev/tenantvault/internal/domain"
	"github.com/semmidev/tenantvault/internal/infrastructure/logger"
	"github.com/semmidev/tenantvault/internal/usecase"
)

type PassRunner interface {
	RunOnce(ctx context.Context, now time.Time) (*usecase.Summary, error)
}

type ManualRunner interface {
	RunManual(ctx context.Context, tenantID string) (*domain.BackupRun, error)
}

type Options struct {
	TriggerToken string
	RunTimeout   time.Duration
}

type Server struct {
	router chi.Router
	passes PassRunner
	manual ManualRunner
	logger *logger.Logger
	opts   Options
	now    func() time.Time
}

func New(passes PassRunner, manual ManualRunner, log *logger.Logger, opts Options) *Server {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 10 * time.Minute
	}

	s := &Server{
		router: chi.NewRouter(),
		passes: passes,
		manual: manual,
		logger: log,
		opts:   opts,
		now:    time.Now,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/backups/run", s.handleRunPass)
		r.Post("/tenants/{tenantID}/backups", s.handleManualBackup)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type passResponse struct {
	Success          bool                  `json:"success"`
	BackupsTriggered int                   `json:"backups_triggered"`
	Organizations    []string              `json:"organizations"`
	Evaluated        int                   `json:"evaluated"`
	Skipped          int                   `json:"skipped"`
	Errors           []usecase.TenantError `json:"errors"`
	Error            string                `json:"error,omitempty"`
}

func (s *Server) handleRunPass(w http.ResponseWriter, r *http.Request) {
	// a dropped client must not interrupt tenants already running
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.RunTimeout)
	defer cancel()

	summary, err := s.passes.RunOnce(ctx, s.now())
	if summary == nil {
		s.logger.Errorf("Backup pass failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := passResponse{
		Success:          err == nil,
		BackupsTriggered: len(summary.Triggered),
		Organizations:    summary.Triggered,
		Evaluated:        summary.Evaluated,
		Skipped:          summary.Skipped,
		Errors:           summary.Errors,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleManualBackup(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if strings.TrimSpace(tenantID) == "" {
		writeError(w, http.StatusBadRequest, "tenant id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.RunTimeout)
	defer cancel()

	run, err := s.manual.RunManual(ctx, tenantID)
	if err != nil {
		s.logger.Errorf("[%s] Manual backup failed: %v", tenantID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth requires "Authorization: Bearer <token>" when a trigger token is set.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.TriggerToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.TriggerToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
