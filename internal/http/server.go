// Package http exposes the finance services as a JSON API plus the chat
// webhooks.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"michaucha/internal/cache"
	"michaucha/internal/core"
	"michaucha/internal/middleware/ratelimit"
	"michaucha/internal/middleware/security"
	"michaucha/internal/middleware/trace"
	"michaucha/internal/parser"
	"michaucha/internal/ports"
	"michaucha/internal/services"
)

const (
	viewCacheSize = 64
	viewCacheTTL  = 5 * time.Minute
)

// Services are the application services the handlers call.
type Services struct {
	Parser       *parser.Parser
	Transactions *services.TransactionService
	Fixed        *services.FixedExpenseService
	Periods      *services.PeriodService
	Summary      *services.SummaryService
	Assistant    *services.AssistantService
}

// FileDownloader fetches a chat attachment by its platform file ID.
type FileDownloader interface {
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

type Options struct {
	// Messenger and Files back the Telegram webhook; nil Messenger only logs
	// replies.
	Messenger ports.Messenger
	Files     FileDownloader
	// MediaClient fetches WhatsApp media URLs.
	MediaClient *http.Client

	N8NSecret         string
	HistoryPeriods    int
	RequestsPerMinute int
	TrustedProxies    []string
	// Ready reports backend readiness for /readyz.
	Ready func(ctx context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server
	svc  Services
	opts Options

	dashboards *cache.Generational[dashboardView]
	analyses   *cache.Generational[core.HistoricalAnalysis]
	caches     *cache.Manager
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. Start the returned server with
// ListenAndServe and stop it with Shutdown.
func NewServer(addr string, svc Services, opts Options) (*Server, error) {
	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	if opts.HistoryPeriods <= 0 {
		opts.HistoryPeriods = services.DefaultHistoryPeriods
	}
	if opts.MediaClient == nil {
		opts.MediaClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		svc:        svc,
		opts:       opts,
		dashboards: cache.NewGenerational(cache.NewLRU[dashboardView](viewCacheSize, viewCacheTTL)),
		analyses:   cache.NewGenerational(cache.NewLRU[core.HistoricalAnalysis](viewCacheSize, viewCacheTTL)),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector:   detector,
		tracer:     trace.NewMiddleware(detector.ClientIP),
	}
	s.caches = cache.NewManager(s.dashboards, s.analyses)
	s.caches.Start(10 * time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ClientIP)(h)
	h = detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/parse", s.handleParse)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/analysis", s.handleAnalysis)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.writes(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.writes(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/fixed-expenses", s.handleListFixedExpenses)
	mux.HandleFunc("POST /api/fixed-expenses/{id}/toggle", s.writes(s.handleToggleFixedExpense))
	mux.HandleFunc("PUT /api/fixed-expenses/{id}/amount", s.writes(s.handleUpdateFixedExpenseAmount))

	mux.HandleFunc("GET /api/periods/current", s.handleCurrentPeriod)
	mux.HandleFunc("POST /api/periods/close", s.writes(s.handleClosePeriod))
	mux.HandleFunc("PUT /api/periods/savings-goal", s.writes(s.handleSavingsGoal))
	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budget", s.writes(s.handleSetBudget))

	mux.HandleFunc("GET /api/export/transactions.xlsx", s.handleExportTransactions)

	mux.HandleFunc("POST /api/telegram", s.writes(s.handleTelegram))
	mux.HandleFunc("POST /api/whatsapp", s.writes(s.handleWhatsApp))
	mux.HandleFunc("POST /api/webhooks/n8n", s.writes(s.handleN8N))
}

// writes drops cached views around a mutating handler. Invalidating first
// retires readers already loading; invalidating after drops anything cached
// while the write was in flight.
func (s *Server) writes(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.invalidate()
		defer s.invalidate()
		next(w, r)
	}
}

func (s *Server) invalidate() {
	s.dashboards.Invalidate()
	s.analyses.Invalidate()
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	total, failed := s.tracer.Counts()
	NewResponse().JSON(readyView{
		Status:          "ready",
		Requests:        total,
		FailedRequests:  failed,
		RateLimited:     s.limiter.Rejected(),
		SuspiciousScans: s.detector.SuspiciousCount(),
	}).Write(w)
}

type readyView struct {
	Status          string `json:"status"`
	Requests        int64  `json:"requests"`
	FailedRequests  int64  `json:"failedRequests"`
	RateLimited     int64  `json:"rateLimited"`
	SuspiciousScans int64  `json:"suspiciousScans"`
}
