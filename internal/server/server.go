// Package server exposes the predictor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/football-predictor/internal/prediction"
	"github.com/Alias1177/football-predictor/internal/scheduler"
	"github.com/Alias1177/football-predictor/internal/summary"
	"github.com/Alias1177/football-predictor/models"
)

// Service is the predictor as seen by the API
type Service interface {
	PredictMatch(ctx context.Context, matchID string) (*models.Prediction, error)
	ReviewMatch(ctx context.Context, matchID string) (*models.ReviewResult, error)
	ListPredictions(ctx context.Context, reviewed *bool, limit int) ([]models.Prediction, error)
	GetPrediction(ctx context.Context, matchID string) (*models.Prediction, error)
	History(ctx context.Context, matchID string) ([]models.ForecastRevision, error)
	Movement(ctx context.Context, matchID string) (*prediction.MovementReport, error)
	Summary(ctx context.Context, days int) (*summary.Report, error)
}

// PassRunner runs a scheduler job on demand
type PassRunner interface {
	Job(name string) (scheduler.Job, bool)
	RunJob(ctx context.Context, job scheduler.Job) (*scheduler.PassResult, error)
}

// Options wires the optional parts of the API
type Options struct {
	Passes   PassRunner           // enables POST /api/passes/{job}
	Registry *prometheus.Registry // enables GET /metrics
}

// Server holds the HTTP handlers
type Server struct {
	svc      Service
	passes   PassRunner
	registry *prometheus.Registry
	logger   zerolog.Logger
}

func New(svc Service, opts Options) *Server {
	return &Server{
		svc:      svc,
		passes:   opts.Passes,
		registry: opts.Registry,
		logger:   log.With().Str("component", "http").Logger(),
	}
}

// response is the envelope of every API reply
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/predict/{id}", s.handlePredict)
	mux.HandleFunc("POST /api/review/{id}", s.handleReview)
	mux.HandleFunc("GET /api/predictions", s.handleListPredictions)
	mux.HandleFunc("GET /api/predictions/{id}", s.handleGetPrediction)
	mux.HandleFunc("GET /api/predictions/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/matches/{id}/movement", s.handleMovement)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	if s.passes != nil {
		mux.HandleFunc("POST /api/passes/{job}", s.handleRunPass)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return s.logRequests(mux)
}

// NewHTTPServer wraps a handler with the daemon's timeouts
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.PredictMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response{Success: true, Data: p})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ReviewMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response{Success: true, Data: res})
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var reviewed *bool
	if v := q.Get("is_reviewed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, response{Message: "is_reviewed must be true or false"})
			return
		}
		reviewed = &b
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, response{Message: "limit must be an integer"})
			return
		}
		limit = n
	}

	preds, err := s.svc.ListPredictions(r.Context(), reviewed, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response{Success: true, Data: preds})
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetPrediction(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response{Success: true, Data: p})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	revs, err := s.svc.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if revs == nil {
		revs = []models.ForecastRevision{}
	}
	s.writeJSON(w, http.StatusOK, response{Success: true, Data: revs})
}

func (s *Server) handleMovement(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Movement(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response{Success: true, Data: report})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	days := summary.DefaultDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, response{Message: "days must be an integer"})
			return
		}
		days = n
	}

	report, err := s.svc.Summary(r.Context(), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response{Success: true, Data: report})
}

func (s *Server) handleRunPass(w http.ResponseWriter, r *http.Request) {
	job, ok := s.passes.Job(r.PathValue("job"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, response{Message: "unknown job " + r.PathValue("job")})
		return
	}

	res, err := s.passes.RunJob(r.Context(), job)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response{Success: true, Data: res})
}

// StatusFor maps engine errors onto HTTP status codes
func StatusFor(err error) int {
	var (
		missing        *models.MissingDataError
		notReviewable  *models.NotReviewableError
		notPredictable *models.NotPredictableError
		changed        *models.ForecastChangedError
		accessor       *models.AccessorError
	)
	switch {
	case errors.Is(err, models.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case models.IsAlreadyReviewed(err), errors.As(err, &notReviewable), errors.As(err, &notPredictable),
		errors.As(err, &changed):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &accessor):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	s.writeJSON(w, status, response{Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(started)).
			Msg("Request served")
	})
}
