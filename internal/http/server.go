package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/store"
	appweb "fintrack/web"
)

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Logger                *log.Logger
	RateLimitPerMinute    int
	TrustedProxies        []string
	DashboardPollInterval time.Duration
	// EventsEnabled is reported by /readyz.
	EventsEnabled bool
	// Now supplies the reference time for analytics. It is read in UTC.
	Now func() time.Time
}

type Server struct {
	http.Server
	store     store.Store
	logger    *log.Logger
	templates *template.Template
	now       func() time.Time

	pollInterval  time.Duration
	eventsEnabled bool
	started       time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, st store.Store, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.DashboardPollInterval <= 0 {
		opts.DashboardPollInterval = 5 * time.Second
	}

	detector, err := security.NewDetector(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		store:            st,
		logger:           logger,
		now:              func() time.Time { return opts.Now().UTC() },
		pollInterval:     opts.DashboardPollInterval,
		eventsEnabled:    opts.EventsEnabled,
		started:          time.Now(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id:[0-9]+}", s.handleGetBudget).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id:[0-9]+}", s.handleUpdateBudget).Methods(http.MethodPut)
	api.HandleFunc("/budgets/{id:[0-9]+}", s.handleDeleteBudget).Methods(http.MethodDelete)

	analytics := api.PathPrefix("/analytics").Subrouter()
	analytics.Use(log.ComponentMiddleware(log.ComponentAnalytics))
	analytics.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	analytics.HandleFunc("/monthly-expenses", s.handleMonthlyExpenses).Methods(http.MethodGet)
	analytics.HandleFunc("/category-breakdown", s.handleCategoryBreakdown).Methods(http.MethodGet)
	analytics.HandleFunc("/weekly-trend", s.handleWeeklyTrend).Methods(http.MethodGet)
	analytics.HandleFunc("/budget-comparison", s.handleBudgetComparison).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static)).Methods(http.MethodGet)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Handle("/", log.ComponentMiddleware(log.ComponentDashboard)(http.HandlerFunc(s.handleIndex))).Methods(http.MethodGet)

	return r
}

// middleware wraps the router, outermost first: tracing, security headers,
// probe detection, then rate limiting of writes.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(next)
	return s.traceMiddleware.Middleware(headers.Middleware(s.securityDetector.Middleware(limited)))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later").Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		NotFoundError("Not found").Write(w)
		return
	}
	http.NotFound(w, r)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
