// Package admin serves the operational HTTP surface: health probes and the
// order job-status API.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/linkmint/linkmint/internal/repository"
	"github.com/linkmint/linkmint/internal/service"
	"github.com/linkmint/linkmint/pkg/health"
)

// Config holds the ops server's listen settings.
type Config struct {
	Addr            string        `env:"ADMIN_ADDR" envDefault:":8081"`
	ReadTimeout     time.Duration `env:"ADMIN_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"ADMIN_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"ADMIN_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// jobStatusReader is the slice of the service the API needs.
type jobStatusReader interface {
	GetOrderJobStatus(ctx context.Context, orderID uuid.UUID) (*service.OrderJobStatus, error)
}

// Server is the ops HTTP server.
type Server struct {
	cfg    Config
	http   *http.Server
	logger *slog.Logger
}

// New builds the server and its routes.
func New(cfg Config, svc jobStatusReader, readiness health.Checks, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(readiness, health.WithLogger(logger)))
	r.Get("/api/orders/{id}/jobs", orderJobsHandler(svc, logger))

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", slog.String("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// orderJobView is the API shape of one projection row.
type orderJobView struct {
	Key         string     `json:"key"`
	Task        string     `json:"task"`
	Queue       string     `json:"queue"`
	State       string     `json:"state"`
	Attempt     int        `json:"attempt"`
	LastError   string     `json:"last_error,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type orderJobsResponse struct {
	OrderID         string         `json:"order_id"`
	Status          string         `json:"status"`
	ScheduledStatus string         `json:"scheduled_status,omitempty"`
	HasActiveJob    bool           `json:"has_active_job"`
	HasFailedJob    bool           `json:"has_failed_job"`
	Jobs            []orderJobView `json:"jobs"`
}

func orderJobsHandler(svc jobStatusReader, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id")
			return
		}

		status, err := svc.GetOrderJobStatus(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
			logger.ErrorContext(r.Context(), "order job status lookup failed",
				slog.String("order_id", orderID.String()), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := orderJobsResponse{
			OrderID:         status.Order.ID.String(),
			Status:          string(status.Order.Status),
			ScheduledStatus: string(status.Order.ScheduledStatus),
			HasActiveJob:    status.HasActiveJob,
			HasFailedJob:    status.HasFailedJob,
			Jobs:            make([]orderJobView, 0, len(status.Jobs)),
		}
		for _, rec := range status.Jobs {
			resp.Jobs = append(resp.Jobs, orderJobView{
				Key:         rec.JobKey,
				Task:        rec.Task,
				Queue:       rec.Queue,
				State:       rec.State,
				Attempt:     rec.Attempt,
				LastError:   rec.LastError,
				ScheduledAt: rec.ScheduledAt,
				UpdatedAt:   rec.UpdatedAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
