package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/service/worker"
	"github.com/slotwise/calsync/pkg/usecase"
	"github.com/slotwise/calsync/pkg/utils/errutil"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// Server is the admin HTTP surface. Mutating endpoints enqueue background
// jobs and return 202; only the stats endpoint reads synchronously.
type Server struct {
	router   *chi.Mux
	uc       *usecase.UseCases
	repo     interfaces.Repository
	queue    *worker.Queue
	notifier interfaces.Notifier
}

type Options func(*Server)

func WithNotifier(n interfaces.Notifier) Options {
	return func(s *Server) {
		s.notifier = n
	}
}

func New(uc *usecase.UseCases, repo interfaces.Repository, queue *worker.Queue, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
		repo:   repo,
		queue:  queue,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/businesses/{businessID}", func(r chi.Router) {
			r.Get("/stats", s.handleStats)
			r.Post("/retry", s.handleRetry)
			r.Post("/sync-pending", s.handleSyncPending)
			r.Post("/full-sync", s.handleFullSync)
			r.Post("/import", s.handleBulkImport)
		})
		r.Post("/staff/{staffID}/import", s.handleImport)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	businessID := types.BusinessID(chi.URLParam(r, "businessID"))

	stats, err := s.uc.SyncStatistics(r.Context(), businessID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"business_id":    stats.BusinessID,
		"total_attempts": stats.TotalAttempts,
		"successful":     stats.Successful,
		"failed":         stats.Failed,
		"pending":        stats.Pending,
		"success_rate":   stats.SuccessRate(),
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	businessID := types.BusinessID(chi.URLParam(r, "businessID"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			errutil.HandleHTTP(r.Context(), w, goerr.New("invalid limit", goerr.V("limit", raw)), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	job := worker.NewBatchJob(s.uc, worker.BatchRetryFailed, businessID, limit)
	s.enqueue(w, r, job)
}

func (s *Server) handleSyncPending(w http.ResponseWriter, r *http.Request) {
	businessID := types.BusinessID(chi.URLParam(r, "businessID"))

	job := worker.NewBatchJob(s.uc, worker.BatchSyncPending, businessID, 0)
	s.enqueue(w, r, job)
}

func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	businessID := types.BusinessID(chi.URLParam(r, "businessID"))

	job := worker.NewBulkImportJob(s.uc, s.repo, businessID, time.Second)
	s.enqueue(w, r, job)
}

func (s *Server) handleFullSync(w http.ResponseWriter, r *http.Request) {
	businessID := types.BusinessID(chi.URLParam(r, "businessID"))

	job := worker.NewBatchJob(s.uc, worker.BatchFullResync, businessID, 0)
	s.enqueue(w, r, job)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	staffID := types.StaffID(chi.URLParam(r, "staffID"))

	// One-off import; the periodic chain is owned by the scheduler
	job := worker.NewImportAvailabilityJob(s.uc, s.repo, nil, staffID)
	s.enqueue(w, r, job)
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, job worker.Job) {
	if err := s.queue.Enqueue(job); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, r, http.StatusAccepted, map[string]string{"queued": job.Name()})
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
