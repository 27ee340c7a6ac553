// Package httpapi serves the scrubber, the URL classifier and the lookup
// resolver over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/nao1215/surveytriage/internal/lookup"
	"github.com/nao1215/surveytriage/internal/metrics"
	"github.com/nao1215/surveytriage/internal/scrub"
	"github.com/nao1215/surveytriage/internal/urlclass"
)

// Defaults for request handling.
const (
	// DefaultMaxBatch is the largest number of texts or paths per request.
	DefaultMaxBatch = 1000

	// DefaultMaxBodyBytes bounds request bodies.
	DefaultMaxBodyBytes = 1 << 20

	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"

	shutdownTimeout = 10 * time.Second
)

// Server holds the handlers' dependencies.
type Server struct {
	scrubber   *scrub.Scrubber
	resolver   *lookup.Resolver
	classifier *urlclass.Classifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
	maxBatch   int
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxBatch limits the number of items per request.
func WithMaxBatch(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithClassifier replaces the default classifier used by /v1/classify.
func WithClassifier(c *urlclass.Classifier) Option {
	return func(s *Server) {
		if c != nil {
			s.classifier = c
		}
	}
}

// New creates a Server. A nil scrubber means scrub.Default(); a nil
// resolver classifies without lookups.
func New(scrubber *scrub.Scrubber, resolver *lookup.Resolver, opts ...Option) *Server {
	s := &Server{
		scrubber:   scrubber,
		resolver:   resolver,
		classifier: urlclass.New(),
		logger:     slog.Default(),
		maxBatch:   DefaultMaxBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scrubber == nil {
		s.scrubber = scrub.Default()
	}
	if s.resolver == nil {
		s.resolver = lookup.NewResolver(nil, lookup.WithClassifier(s.classifier))
	}
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/scrub", s.handleScrub)
	r.Get("/v1/classify", s.handleClassify)
	r.Post("/v1/lookup", s.handleLookup)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http api: %w", err)
		}
		return nil
	}
}

type requestIDKey struct{}

// requestID reuses a valid incoming X-Request-ID or assigns a new UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.HTTPDone(route, status, time.Since(start))
		}
		s.logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"request_id", RequestID(r.Context()),
			"elapsed", time.Since(start),
		)
	})
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, DefaultMaxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	respondJSON(w, status, errorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: RequestID(r.Context()),
	})
}
