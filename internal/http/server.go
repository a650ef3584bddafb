package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"coinpath/internal/cache"
	"coinpath/internal/core"
	"coinpath/internal/ledger"
	"coinpath/internal/log"
	"coinpath/internal/middleware/ratelimit"
	"coinpath/internal/middleware/security"
	"coinpath/internal/middleware/trace"
	"coinpath/internal/services"
	"coinpath/internal/settings"
)

// Options carries the optional collaborators of a Server.
type Options struct {
	Settings *settings.Settings
	// RemoteEmail is the service account of the remote sheet, shown in
	// diagnostics so the user knows whom to share the sheet with.
	RemoteEmail string
	RateLimit   ratelimit.Config
	CacheTTL    time.Duration
	CacheSize   int
	Logger      *log.Logger
}

type Server struct {
	http.Server
	entries   *services.EntryService
	store     *ledger.Store
	recurring *services.RecurringProcessor
	settings  *settings.Settings
	email     string
	logger    *log.Logger
	now       func() time.Time
	maxBody   int64

	// month views keyed by cache.MonthKey, dropped on every write
	snapshots    *cache.Loader[ledger.Snapshot]
	snapshotLRU  *cache.LRUCache[ledger.Snapshot]
	cacheManager *cache.Manager

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, entries *services.EntryService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	st := opts.Settings
	if st == nil {
		def := settings.Defaults()
		st = &def
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}

	lru := cache.NewLRUCache[ledger.Snapshot](opts.CacheSize, opts.CacheTTL)
	s := &Server{
		entries:      entries,
		store:        entries.Store(),
		recurring:    services.NewRecurringProcessor(entries, logger),
		settings:     st,
		email:        opts.RemoteEmail,
		logger:       logger.WithComponent(log.ComponentHTTP),
		now:          time.Now,
		maxBody:      maxBodyBytes,
		snapshots:    cache.NewLoader[ledger.Snapshot](lru),
		snapshotLRU:  lru,
		cacheManager: cache.NewManager(logger),
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
	}
	s.cacheManager.Register(lru)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	ips := security.NewIPResolver()
	s.tracer = trace.NewMiddleware(s.logger, ips.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/breakdown", s.handleBreakdown)
	mux.HandleFunc("/api/flow", s.handleFlow)
	mux.HandleFunc("/api/cashflow", s.handleCashFlow)
	mux.HandleFunc("/api/trend", s.handleTrend)
	mux.HandleFunc("/api/insights", s.handleInsights)
	mux.HandleFunc("/api/export.csv", s.handleExport)
	mux.HandleFunc("/api/import", s.handleImport)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/recurring/apply", s.handleRecurringApply)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})

	var handler http.Handler = mux
	handler = s.limiter.Middleware(ips.ClientIP, ratelimit.WritesOnly, TooManyRequests)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// snapshot returns the collection for p, from cache when possible. Month 0
// is the whole collection.
func (s *Server) snapshot(ctx context.Context, p MonthParams) ledger.Snapshot {
	snap, hit, _ := s.snapshots.Get(ctx, cache.MonthKey(p.Year, p.Month), func(ctx context.Context) (ledger.Snapshot, error) {
		snap := s.store.Load(ctx)
		snap.Transactions = monthOf(snap.Transactions, p)
		return snap, nil
	})
	if hit {
		log.FromContext(ctx).DebugContext(ctx, "Month served from cache",
			log.FieldYear, p.Year,
			log.FieldMonth, p.Month)
	}
	return snap
}

// invalidate drops every cached view after a write.
func (s *Server) invalidate() {
	s.snapshots.Invalidate()
}

// monthRows is the filtered collection for the request's month.
func (s *Server) monthRows(w http.ResponseWriter, r *http.Request) (MonthParams, ledger.Snapshot, bool) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return MonthParams{}, ledger.Snapshot{}, false
	}
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return p, ledger.Snapshot{}, false
	}
	return p, s.snapshot(r.Context(), p), true
}

func (s *Server) today() core.Date {
	now := s.now()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.store.Status()
	NewJSONResponse().
		Data(map[string]interface{}{
			"status":   "ready",
			"backend":  st.Primary,
			"degraded": st.Degraded,
		}).
		Write(w)
}
