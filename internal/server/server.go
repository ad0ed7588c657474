// Package server wires together the HTTP API for the reconciliation service.
package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/gambino-gaming/reconciliation/internal/config"
	"github.com/gambino-gaming/reconciliation/internal/health"
	"github.com/gambino-gaming/reconciliation/internal/logging"
	"github.com/gambino-gaming/reconciliation/internal/metrics"
	"github.com/gambino-gaming/reconciliation/internal/ratelimit"
	"github.com/gambino-gaming/reconciliation/internal/realtime"
	"github.com/gambino-gaming/reconciliation/internal/reports"
	"github.com/gambino-gaming/reconciliation/internal/security"
	"github.com/gambino-gaming/reconciliation/internal/summary"
	"github.com/gambino-gaming/reconciliation/internal/validation"
	"github.com/gambino-gaming/reconciliation/internal/venues"
	"github.com/gambino-gaming/reconciliation/internal/vouchers"
)

// Server is the reconciliation HTTP server.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	router *gin.Engine

	db          *sql.DB
	rateLimiter *ratelimit.Limiter
	hub         *realtime.Hub
	healthReg   *health.Registry

	venueSvc   *venues.Service
	reportSvc  *reports.Service
	classifier *reports.Classifier
	voucherSvc *vouchers.Service
	aggregator *summary.Aggregator

	httpSrv      *http.Server
	ready        atomic.Bool
	cancelRunCtx context.CancelFunc
}

// Option configures the server.
type Option func(*Server)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a fully wired server from configuration.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()

	ctx := context.Background()

	var (
		venueStore   venues.Store
		reportStore  reports.Store
		voucherStore vouchers.Store
		auditLogger  reports.AuditLogger
	)

	// Storage: Postgres if DATABASE_URL set, otherwise in-memory
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		vs := venues.NewPostgresStore(db)
		if err := vs.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate venue store", "error", err)
		}
		venueStore = vs

		rs := reports.NewPostgresStore(db)
		if err := rs.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate report store", "error", err)
		}
		reportStore = rs

		vos := vouchers.NewPostgresStore(db)
		if err := vos.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate voucher store", "error", err)
		}
		voucherStore = vos

		al := reports.NewPostgresAuditLogger(db)
		if err := al.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate audit log", "error", err)
		}
		auditLogger = al
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		venueStore = venues.NewMemoryStore()
		reportStore = reports.NewMemoryStore()
		voucherStore = vouchers.NewMemoryStore()
		auditLogger = reports.NewMemoryAuditLogger()
	}

	// Realtime dashboard feed
	s.hub = realtime.NewHub(s.logger)
	emitter := realtime.NewEmitter(s.hub)

	// Domain services
	s.venueSvc = venues.NewService(venueStore)

	scorer := reports.NewScorerWithWindow(
		time.Duration(cfg.ReportWindowMinHrs)*time.Hour,
		time.Duration(cfg.ReportWindowMaxHrs)*time.Hour,
	)
	s.reportSvc = reports.NewService(reportStore, scorer, s.venueSvc, emitter)
	s.reportSvc.SetReviewFloor(cfg.QualityReviewFloor)
	s.classifier = reports.NewClassifier(reportStore, auditLogger, emitter)

	s.voucherSvc = vouchers.NewService(voucherStore, emitter)
	s.aggregator = summary.NewAggregator(reportStore, voucherStore, s.venueSvc)

	// Health checks
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("database", health.DBChecker(s.db))
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// maskDSN hides credentials in a connection string for logging.
func maskDSN(dsn string) string {
	if at := strings.Index(dsn, "@"); at != -1 {
		if scheme := strings.Index(dsn, "://"); scheme != -1 {
			return dsn[:scheme+3] + "***" + dsn[at:]
		}
	}
	return dsn
}

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	s.router.Use(security.CORSMiddleware(strings.Split(s.cfg.AllowedOrigins, ",")))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitPerMinute
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Operator identity for the audit trail
	s.router.Use(s.actorMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// actorMiddleware threads the operator identity from the X-Actor header into
// the request context so status changes are attributed in the audit trail.
func (s *Server) actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := c.GetHeader("X-Actor"); actor != "" {
			ctx := reports.WithActor(c.Request.Context(),
				validation.SanitizeString(actor, 200))
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// ingestAuthMiddleware guards hardware ingestion endpoints with a shared
// secret when one is configured.
func (s *Server) ingestAuthMiddleware() gin.HandlerFunc {
	secret := []byte(s.cfg.IngestSharedSecret)
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		provided := []byte(c.GetHeader("X-Ingest-Secret"))
		if subtle.ConstantTimeCompare(provided, secret) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or missing ingest secret",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())
	s.router.GET("/", s.infoHandler)

	// WebSocket feed for the operator dashboard
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})
	s.router.GET("/ws/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.hub.Stats())
	})

	v1 := s.router.Group("/v1")

	// Hardware ingestion, behind the shared secret when configured
	ingest := v1.Group("")
	ingest.Use(s.ingestAuthMiddleware())
	reportHandler := reports.NewHandler(s.reportSvc, s.classifier)
	voucherHandler := vouchers.NewHandler(s.voucherSvc)
	ingest.POST("/ingest/reports", reportHandler.IngestReport)
	ingest.POST("/ingest/vouchers", voucherHandler.RecordVoucher)

	// Operator API
	venues.NewHandler(s.venueSvc).RegisterRoutes(v1)
	voucherHandler.RegisterRoutes(v1)
	reportHandler.RegisterRoutes(v1)
	summary.NewHandler(s.aggregator).RegisterRoutes(v1)
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	code := http.StatusOK
	status := "healthy"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"subsystems": statuses,
		"timestamp":  time.Now().UTC(),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":           "gambino-reconciliation",
		"version":           "1.0.0",
		"environment":       s.cfg.Env,
		"defaultFeePercent": decimal.NewFromFloat(s.cfg.DefaultFeePercent),
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.hub.Run(runCtx)

	// Sample DB pool stats into Prometheus
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, stats collector)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
