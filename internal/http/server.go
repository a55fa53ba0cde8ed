package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
)

type Server struct {
	http.Server
	ledger  *ledger.Store
	logger  *applog.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	now     func() time.Time
	ready   func(context.Context) error
}

type Option func(*Server)

// WithRateLimit limits mutating requests per client per minute. Zero
// disables the limiter.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: perMinute})
		}
	}
}

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithReadinessCheck sets the probe behind /readyz.
func WithReadinessCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent(applog.ComponentHTTP)
		}
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *ledger.Store, opts ...Option) *Server {
	s := &Server{
		ledger: store,
		logger: applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.Default().Handler()}),
		tracer: trace.NewMiddleware(extractClientIP),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	r.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/clear", s.handleClearTransactions).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}", s.handleGetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id:[0-9]+}", s.handlePatchTransaction).Methods(http.MethodPatch)
	r.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	r.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/export.csv", s.handleExportCSV).Methods(http.MethodGet)
	r.HandleFunc("/export.pdf", s.handleExportPDF).Methods(http.MethodGet)

	var h http.Handler = r
	if s.limiter != nil {
		h = s.limiter.Middleware(extractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
		})(h)
	}
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type metricsResponse struct {
	Requests struct {
		Total          int64 `json:"total"`
		ServerErrors   int64 `json:"server_errors"`
		LastResponseUS int64 `json:"last_response_us"`
	} `json:"requests"`
	RateLimit *rateLimitMetrics `json:"rate_limit,omitempty"`
	Ledger    struct {
		Count int `json:"count"`
	} `json:"ledger"`
}

type rateLimitMetrics struct {
	Hits    int64 `json:"hits"`
	Clients int64 `json:"clients"`
}

// handleMetrics reports request counters, rate limiter state and ledger size.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var resp metricsResponse
	tm := s.tracer.GetMetrics()
	resp.Requests.Total = tm.TotalRequests
	resp.Requests.ServerErrors = tm.ServerErrorRequests
	resp.Requests.LastResponseUS = tm.LastResponseTime
	if s.limiter != nil {
		rm := s.limiter.GetMetrics()
		resp.RateLimit = &rateLimitMetrics{Hits: rm.TotalHits, Clients: rm.ClientCount}
	}
	resp.Ledger.Count = s.ledger.Len()
	NewJSONResponse().Body(resp).Write(w)
}
