package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/armctl/internal/auth"
	"github.com/danmuck/armctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrActionNotFound  = errors.New("action not found")
)

// Config configures the admin server.
type Config struct {
	ID          string
	Addr        string
	CorsOrigins []string
	// Auth guards action routes. Nil leaves them open.
	Auth auth.Validator
	// Ready reports whether the device is accepting link traffic. Nil means
	// always ready.
	Ready func() bool
}

// Server is the gin admin surface for one device.
type Server struct {
	cfg      Config
	router   *gin.Engine
	services *ServiceRegistry
	servos   *ServoService
	cycles   *CycleService
	started  time.Time
}

func NewServer(cfg Config, servos *ServoService, cycles *CycleService, extra ...Service) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.AdminRequests(cfg.ID, log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	registry := NewServiceRegistry()
	registry.Register(servos)
	registry.Register(cycles)
	for _, svc := range extra {
		registry.Register(svc)
	}

	s := &Server{
		cfg:      cfg,
		router:   r,
		services: registry,
		servos:   servos,
		cycles:   cycles,
		started:  time.Now(),
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": s.cfg.ID,
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		ready := s.cfg.Ready == nil || s.cfg.Ready()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.started).String(),
			"service": s.cfg.ID,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/servos", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.servos.status())
	})

	s.router.GET("/cycles", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.cycles.status())
	})

	s.router.GET("/services", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"services": s.services.List()})
	})

	s.router.GET("/services/:service", func(c *gin.Context) {
		svc, ok := s.services.Get(c.Param("service"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrServiceNotFound.Error()})
			return
		}
		st, err := svc.Status()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"service": svc.Name(), "status": st})
	})

	s.router.POST("/services/:service/actions/:action", s.requireAuth(), func(c *gin.Context) {
		out, err := s.ExecuteAction(c.Param("service"), c.Param("action"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrServiceNotFound) || errors.Is(err, ErrActionNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "output": out})
	})
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Auth == nil {
			c.Next()
			return
		}
		token, _ := auth.BearerToken(c.GetHeader("Authorization"))
		if err := s.cfg.Auth.Validate(token); err != nil {
			log.Warn().
				Str("path", c.FullPath()).
				Str("remote", c.ClientIP()).
				Msg("admin action rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// ExecuteAction runs one named action of a registered service.
func (s *Server) ExecuteAction(serviceName, actionName string) (string, error) {
	svc, ok := s.services.Get(serviceName)
	if !ok {
		return "", ErrServiceNotFound
	}
	action, ok := svc.Actions()[actionName]
	if !ok {
		return "", ErrActionNotFound
	}
	out, err := action()
	if err != nil {
		log.Error().
			Str("service", serviceName).
			Str("action", actionName).
			Err(err).
			Msg("admin action failed")
		return "", err
	}
	log.Info().
		Str("service", serviceName).
		Str("action", actionName).
		Msg("admin action executed")
	return out, nil
}

// Serve listens on cfg.Addr until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("admin listen %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln and shuts down gracefully when ctx is done.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("admin listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin shutdown: %w", err)
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
