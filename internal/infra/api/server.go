package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"docgen-progress/internal/config"
	"docgen-progress/internal/domain/ports/repository"
	"docgen-progress/internal/infra/logging"
	"docgen-progress/internal/infra/metrics"
	"docgen-progress/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server exposes job submission and the per-job progress stream.
type Server struct {
	jobUC  usecase.JobUseCase
	store  repository.ProgressStore
	stream config.StreamConfig
	log    *zerolog.Logger
	srv    *http.Server
}

func NewServer(cfg *config.Config, jobUC usecase.JobUseCase, store repository.ProgressStore, logger *zerolog.Logger) *Server {
	apiLog := logger.With().Str("component", "API").Logger()
	s := &Server{
		jobUC:  jobUC,
		store:  store,
		stream: cfg.Stream,
		log:    &apiLog,
	}
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: s.Router(),
	}
	return s
}

// Router builds the chi router. Exposed separately so tests can mount it on
// an httptest server.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post("/jobs", s.handleSubmit)
	r.Get("/jobs/{jobID}", s.handleSnapshot)
	r.Get("/jobs/{jobID}/stream", s.handleStream)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// requestLogger tags each request with a trace id and logs one line per
// request. Stream requests are long-lived, so the duration there is the
// stream lifetime, not handler latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		log := logging.With(ctx, s.log)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
