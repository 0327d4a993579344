package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/fingerprint"
	"github.com/MikeSquared-Agency/blocksafe/internal/pipeline"
	"github.com/MikeSquared-Agency/blocksafe/internal/report"
	"github.com/MikeSquared-Agency/blocksafe/internal/store"
)

const (
	apiKeyHeader = "X-API-KEY"
	maxBodyBytes = 1 << 20
	// Version is reported by /health.
	Version = "1.0.0"
)

type Analyzer interface {
	Analyze(ctx context.Context, in pipeline.Input) (*report.Record, error)
}

// RecordReader serves stored records. *store.Store satisfies it.
type RecordReader interface {
	GetRecord(ctx context.Context, id string) (json.RawMessage, error)
	ListSession(ctx context.Context, sessionID string, limit int) ([]json.RawMessage, error)
}

// Options configures a Server. Records, Limiter and RateObserver may be nil.
type Options struct {
	APIKey       string
	Analyzer     Analyzer
	Records      RecordReader
	Limiter      Limiter
	RateObserver RateObserver
	// Metrics serves /metrics; nil uses the default prometheus registry.
	Metrics http.Handler
	Logger  *slog.Logger
}

type Server struct {
	router   *chi.Mux
	port     int
	analyzer Analyzer
	records  RecordReader
	logger   *slog.Logger
}

func NewServer(port int, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		analyzer: opts.Analyzer,
		records:  opts.Records,
		logger:   opts.Logger,
	}

	router.Get("/health", s.health)
	router.Method(http.MethodGet, "/metrics", opts.Metrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyMiddleware(opts.APIKey))
		r.Use(RateLimitMiddleware(opts.Limiter, opts.RateObserver))
		r.Post("/analyze/text", s.analyzeText)
		r.Get("/records/{id}", s.getRecord)
		r.Get("/sessions/{id}/records", s.listSession)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// APIKeyMiddleware requires a matching X-API-KEY header. An empty key
// disables the check.
func APIKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(apiKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				w.Header().Set("WWW-Authenticate", "ApiKey")
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type analyzeRequest struct {
	Message   string                    `json:"message"`
	Mode      string                    `json:"mode"`
	SessionID string                    `json:"session_id,omitempty"`
	Voice     *fingerprint.VoiceSignals `json:"voice,omitempty"`
	FollowUps []string                  `json:"follow_ups,omitempty"`
}

func (s *Server) analyzeText(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be a JSON object")
		return
	}

	mode := decision.ModeShield
	if req.Mode != "" {
		m, err := decision.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_MODE", "Mode must be 'shield' or 'honeypot'")
			return
		}
		mode = m
	}

	rec, err := s.analyzer.Analyze(r.Context(), pipeline.Input{
		Message:   req.Message,
		Mode:      mode,
		SessionID: req.SessionID,
		Voice:     req.Voice,
		FollowUps: req.FollowUps,
	})
	if errors.Is(err, pipeline.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "EMPTY_MESSAGE", "Message content cannot be empty")
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("analysis abandoned", "error", err)
		writeError(w, http.StatusServiceUnavailable, "ANALYSIS_ABANDONED", "Request ended before analysis completed")
		return
	}
	if err != nil {
		s.logger.Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotImplemented, "STORE_DISABLED", "Record storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	raw, err := s.records.GetRecord(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Record not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load record", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) listSession(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotImplemented, "STORE_DISABLED", "Record storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	records, err := s.records.ListSession(r.Context(), id, 0)
	if err != nil {
		s.logger.Error("failed to list session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"records":    records,
		"count":      len(records),
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}
