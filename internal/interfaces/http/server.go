// Package http exposes the voucher workflow over REST.
// Handlers translate requests into engine and service calls and carry no workflow logic.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/voucher-approval/internal/application/service"
	"github.com/garyjia/voucher-approval/internal/application/workflow"
)

// HeaderRequestID is echoed back on every response
const HeaderRequestID = "X-Request-ID"

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the voucher API until its context is cancelled
type Server struct {
	config     ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	logger     Logger
}

// NewServer wires the voucher routes onto a fresh gin engine
func NewServer(
	config ServerConfig,
	engine workflow.WorkflowEngine,
	voucherService service.VoucherService,
	settingsService service.SettingsService,
	logger Logger,
) *Server {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultServerConfig().ShutdownTimeout
	}

	s := &Server{
		config: config,
		router: gin.New(),
		logger: logger,
	}

	s.router.Use(gin.Recovery(), requestID(), s.accessLog())
	registerRoutes(s.router, NewHandlers(engine, voucherService, settingsService, logger))

	return s
}

func registerRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")

	vouchers := api.Group("/vouchers")
	vouchers.POST("", h.CreateVoucher)
	vouchers.GET("", h.ListVouchers)
	vouchers.GET("/:id", h.GetVoucher)
	vouchers.POST("/:id/submit", h.SubmitVoucher)
	vouchers.POST("/:id/actions", h.Act)
	vouchers.POST("/:id/quorum-votes", h.CastQuorumVote)
	vouchers.POST("/:id/cancel", h.CancelVoucher)
	vouchers.GET("/:id/progress", h.GetProgress)
	vouchers.GET("/:id/audit", h.GetAuditTrail)

	settings := api.Group("/settings")
	settings.GET("/quorum-threshold", h.GetQuorumThreshold)
	settings.PUT("/quorum-threshold", h.UpdateQuorumThreshold)
}

// requestID keeps a caller supplied request id or mints one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"request_id", c.GetString(HeaderRequestID),
			"actor_id", c.GetHeader(HeaderActorID),
		)
	}
}

// Start listens on the configured address and blocks until ctx is done
// or the listener fails. Bind errors are returned before serving begins.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Address())
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.logger.Info("Starting HTTP server", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop drains in-flight requests within the shutdown timeout
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns host:port
func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}
