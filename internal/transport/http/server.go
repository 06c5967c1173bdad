// Package http exposes the execution gateway and its operational surfaces
// over a Gin HTTP server.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stratos/internal/dedup"
	"stratos/internal/engine"
	"stratos/internal/logger"
	"stratos/internal/rules"
	"stratos/internal/store/instances"
	"stratos/internal/strategy"
	"stratos/internal/types"
)

type Server struct {
	addr     string
	router   *gin.Engine
	gateway  *engine.Gateway
	dedup    dedup.Store
	rules    *rules.Service
	registry *strategy.Registry
	mirror   *instances.Store // optional sqlite mirror of instance status
}

type Config struct {
	Addr     string
	Gateway  *engine.Gateway
	Dedup    dedup.Store
	Rules    *rules.Service
	Registry *strategy.Registry
	Mirror   *instances.Store
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9880"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), traceMiddleware())

	s := &Server{
		addr:     cfg.Addr,
		router:   router,
		gateway:  cfg.Gateway,
		dedup:    cfg.Dedup,
		rules:    cfg.Rules,
		registry: cfg.Registry,
		mirror:   cfg.Mirror,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api/v1")
	api.POST("/exec", s.handleExec)
	api.GET("/dedup/stats", s.handleDedupStats)
	api.GET("/rules/:venue/:symbol", s.handleRule)
	api.GET("/strategies", s.handleStrategies)
	api.POST("/strategies/:id/pause", s.handleStatusChange(strategy.StatusPaused))
	api.POST("/strategies/:id/resume", s.handleStatusChange(strategy.StatusActive))
}

// traceMiddleware tags each request with an id and logs its outcome.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := c.GetHeader("X-Trace-Id")
		if trace == "" {
			trace = uuid.NewString()[:8]
		}
		c.Set("trace_id", trace)
		c.Header("X-Trace-Id", trace)
		start := time.Now()
		c.Next()
		logger.Debugf("[%s] %s %s -> %d (%s)", trace, c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func (s *Server) handleExec(c *gin.Context) {
	var req types.ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := s.gateway.Exec(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	status, details := s.gateway.Health(c.Request.Context())
	code := http.StatusOK
	if status == types.Unhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status.String(), "details": details})
}

func (s *Server) handleDedupStats(c *gin.Context) {
	stats, err := s.dedup.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleRule probes the descriptor cache for one instrument, pairing its
// trading rule with the venue's commission rate.
func (s *Server) handleRule(c *gin.Context) {
	venue, symbol := c.Param("venue"), c.Param("symbol")
	rule, err := s.rules.TradingRule(venue, symbol)
	if err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := gin.H{"trading_rule": rule}
	if rate, err := s.rules.CommissionRate(venue, symbol); err == nil {
		out["commission_rate"] = rate
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"types":     strategy.RegisteredTypes(),
		"instances": s.registry.All(),
	})
}

func (s *Server) handleStatusChange(target strategy.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !s.registry.SetStatus(id, target) {
			c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
			return
		}
		if s.mirror != nil {
			if err := s.mirror.SetStatus(c.Request.Context(), id, target); err != nil {
				logger.Warnf("instance mirror update for %s failed: %v", id, err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "status": target})
	}
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("http server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Router exposes the gin engine for httptest harnesses.
func (s *Server) Router() http.Handler { return s.router }
