package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"adstats/internal/core"
	applog "adstats/internal/log"
	"adstats/internal/middleware/ratelimit"
	"adstats/internal/middleware/security"
	"adstats/internal/middleware/trace"
	appweb "adstats/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Runner is the aggregation surface the server presents.
type Runner interface {
	Result() core.RunResult
	Busy() bool
	Refresh(ctx context.Context) (core.RunResult, error)
	SignOut(ctx context.Context)
}

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// Options configures optional server collaborators.
type Options struct {
	Logger *applog.Logger
	// Checkers are consulted by /readyz, keyed by name.
	Checkers map[string]ReadinessChecker
	// RefreshPerMinute limits refresh requests per client (default: 6)
	RefreshPerMinute int
	// AllowedOrigins enables CORS on /api for these origins.
	AllowedOrigins []string
}

type Server struct {
	http.Server
	runner    Runner
	checkers  map[string]ReadinessChecker
	origins   []string
	templates *template.Template
	logger    *applog.Logger

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	clientIP *security.ClientIPResolver
	metrics  appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, runner Runner, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	if opts.RefreshPerMinute <= 0 {
		opts.RefreshPerMinute = 6
	}

	s := &Server{
		runner:   runner,
		checkers: opts.Checkers,
		origins:  opts.AllowedOrigins,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{Limit: opts.RefreshPerMinute, Window: time.Minute}),
		clientIP: security.NewClientIPResolver(),
		metrics:  appMetrics{startedAt: time.Now()},
	}
	s.tracer = trace.NewMiddleware(logger, s.clientIP.ClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err.Error())
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	refreshLimit := s.limiter.Middleware(s.clientIP.ClientIP, s.handleRateLimited)

	r.Group(func(r chi.Router) {
		r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

		if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
			r.With(security.StaticAssetMiddleware(3600)).
				Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
		} else {
			s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err.Error())
		}

		r.Get("/", s.handleIndex)
		r.With(refreshLimit).Post("/refresh", s.handleRefreshForm)
		r.Post("/signout", s.handleSignOutForm)
	})

	r.Route("/api", func(r chi.Router) {
		if len(s.origins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: s.origins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
				MaxAge:         300,
			}))
		}
		r.Get("/summary", s.handleSummary)
		r.With(refreshLimit).Post("/refresh", s.handleRefresh)
		r.Post("/signout", s.handleSignOut)
	})

	return r
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
