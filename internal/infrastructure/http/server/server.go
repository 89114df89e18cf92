// Package server exposes the planner over HTTP. Plan generation
// responds with a newline-delimited JSON event stream so clients can
// render progress incrementally.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hubertdeng123/meal-planner-sub000/internal/domain/mealplan"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/config"
	"github.com/hubertdeng123/meal-planner-sub000/internal/infrastructure/monitoring"
	"github.com/hubertdeng123/meal-planner-sub000/internal/ports/inbound"
)

// Server is the HTTP front end.
type Server struct {
	httpServer *http.Server
	planner    inbound.PlannerService
	db         *gorm.DB
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, planner inbound.PlannerService, db *gorm.DB, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	s := &Server{
		planner: planner,
		db:      db,
		metrics: metrics,
		logger:  logger.Named("http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.WriteTimeout))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plans/generate", s.handleGeneratePlan)
		r.Post("/slots/generate", s.handleGenerateSlot)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Start begins serving. Blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status, "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req inbound.WeeklyPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sink, ok := newStreamSink(w)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	plan, err := s.planner.GenerateWeeklyPlan(r.Context(), req, sink)
	if err != nil {
		// Headers are already out; the error travels as a final event.
		s.logger.Error("plan generation failed", zap.Error(err))
		sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressError, Error: publicError(err)})
		return
	}
	sink.emitRaw(map[string]interface{}{"type": "plan", "plan": plan})
}

func (s *Server) handleGenerateSlot(w http.ResponseWriter, r *http.Request) {
	var req inbound.SlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sink, ok := newStreamSink(w)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	slot, err := s.planner.GenerateSlot(r.Context(), req, sink)
	if err != nil {
		s.logger.Error("slot generation failed", zap.Error(err))
		sink.Emit(inbound.ProgressEvent{Type: inbound.ProgressError, Error: publicError(err)})
		return
	}
	sink.emitRaw(map[string]interface{}{"type": "slot", "slot": slot})
}

// streamSink writes each event as one JSON line and flushes
// immediately.
type streamSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
}

func newStreamSink(w http.ResponseWriter) (*streamSink, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &streamSink{w: w, flusher: flusher, enc: json.NewEncoder(w)}, true
}

// Emit implements inbound.EventSink.
func (s *streamSink) Emit(ev inbound.ProgressEvent) {
	s.emitRaw(ev)
}

func (s *streamSink) emitRaw(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		return
	}
	s.flusher.Flush()
}

func publicError(err error) string {
	if errors.Is(err, mealplan.ErrPlanPersistence) {
		return "the plan could not be saved"
	}
	return "plan generation failed"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
