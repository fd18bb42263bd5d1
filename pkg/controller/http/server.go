package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/service/metrics"
	"github.com/secmon-lab/grcore/pkg/usecase"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

type Server struct {
	router  *chi.Mux
	uc      *usecase.UseCases
	oracle  interfaces.PermissionOracle
	metrics *metrics.Metrics
}

type Options func(*Server)

// WithPermissionOracle enables role checks for bulk actions. Without an
// oracle every bulk action is forbidden.
func WithPermissionOracle(oracle interfaces.PermissionOracle) Options {
	return func(s *Server) {
		s.oracle = oracle
	}
}

// WithMetrics counts requests and serves /metrics
func WithMetrics(m *metrics.Metrics) Options {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(s.accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(actorMiddleware)

		r.Patch("/risks/{id}", s.patchRisk)
		r.Post("/controls/{id}/state", s.postControlState)
		r.Post("/sweeps/{kind}", s.postSweep)
		r.Post("/remaps/{table}", s.postRemap)
		r.Post("/issues/bulk-close", s.postBulkClose)
		r.Get("/relations/{kind}/orphans", s.getOrphans)
		r.Get("/policies/{id}/compliance", s.getPolicyCompliance)
		r.Get("/policy-statements/{id}/policy", s.getStatementPolicy)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger logs every request with its request ID and counts it by route
func (s *Server) accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.From(r.Context()).With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.With(r.Context(), logger))

		defer func() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if s.metrics != nil {
				s.metrics.CountRequest(route, ww.Status())
			}

			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
