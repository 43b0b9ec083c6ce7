package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"socialbets/domain/entities"
	"socialbets/domain/interfaces"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// HealthFunc reports whether a dependency is usable
type HealthFunc func(ctx context.Context) error

// AdminCommands are the operator actions exposed over HTTP
type AdminCommands interface {
	ForceResolveIfDeadlinePassed(ctx context.Context, betID int64) (*interfaces.ResolutionResult, error)
	ReconcileBet(ctx context.Context, betID int64) (*interfaces.SettlementReport, error)
	GetVoteTally(ctx context.Context, betID int64) (*interfaces.ConsensusEvaluation, error)
	GetFulfillmentStatus(ctx context.Context, betID int64) (*entities.FulfillmentSummary, error)
}

// Server is the operator HTTP server: health, Prometheus metrics and admin endpoints
type Server struct {
	httpServer      *http.Server
	commands        AdminCommands
	health          HealthFunc
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
}

// NewServer builds the router; call Start to listen
func NewServer(addr string, commands AdminCommands, health HealthFunc) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "socialbets",
		Subsystem: "admin",
		Name:      "request_duration_seconds",
		Help:      "Duration of operator API requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code"})
	registry.MustRegister(requestDuration)

	s := &Server{
		commands:        commands,
		health:          health,
		registry:        registry,
		requestDuration: requestDuration,
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes returns the chi router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/admin/bets/{betID}", func(r chi.Router) {
		r.Use(s.instrument)
		r.Post("/force-resolve", s.handleForceResolve)
		r.Post("/reconcile", s.handleReconcile)
		r.Get("/tally", s.handleTally)
		r.Get("/fulfillment", s.handleFulfillment)
	})

	return r
}

// Start listens in the background
func (s *Server) Start() {
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("Operator HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Operator HTTP server stopped")
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		s.requestDuration.
			WithLabelValues(route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()

	if s.health != nil {
		if err := s.health(ctx); err != nil {
			http.Error(w, fmt.Sprintf("unhealthy: %v", err), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleForceResolve(w http.ResponseWriter, r *http.Request) {
	betID, ok := betIDParam(w, r)
	if !ok {
		return
	}
	result, err := s.commands.ForceResolveIfDeadlinePassed(r.Context(), betID)
	respond(w, result, err)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	betID, ok := betIDParam(w, r)
	if !ok {
		return
	}
	report, err := s.commands.ReconcileBet(r.Context(), betID)
	respond(w, report, err)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	betID, ok := betIDParam(w, r)
	if !ok {
		return
	}
	tally, err := s.commands.GetVoteTally(r.Context(), betID)
	respond(w, tally, err)
}

func (s *Server) handleFulfillment(w http.ResponseWriter, r *http.Request) {
	betID, ok := betIDParam(w, r)
	if !ok {
		return
	}
	summary, err := s.commands.GetFulfillmentStatus(r.Context(), betID)
	respond(w, summary, err)
}

func betIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	betID, err := strconv.ParseInt(chi.URLParam(r, "betID"), 10, 64)
	if err != nil || betID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "invalid_bet_id", Message: "bet id must be a positive integer"})
		return 0, false
	}
	return betID, true
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusForError maps a domain error kind to an HTTP status
func StatusForError(err error) int {
	switch entities.KindOf(err) {
	case entities.KindValidation:
		return http.StatusBadRequest
	case entities.KindAuthorization:
		return http.StatusForbidden
	case entities.KindStateConflict:
		return http.StatusConflict
	case entities.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, body any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, body)
		return
	}

	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Operator request failed")
		writeJSON(w, status, errorBody{Code: "internal", Message: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Code: entities.CodeOf(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response body")
	}
}
