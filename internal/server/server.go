package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/dockhand-io/dockhand/internal/config"
	"github.com/dockhand-io/dockhand/internal/governance"
	"github.com/dockhand-io/dockhand/internal/handler"
	"github.com/dockhand-io/dockhand/internal/healthwatch"
	"github.com/dockhand-io/dockhand/internal/middleware"
	"github.com/dockhand-io/dockhand/internal/notify"
	"github.com/dockhand-io/dockhand/internal/repository"
	"github.com/dockhand-io/dockhand/internal/service"
	"github.com/dockhand-io/dockhand/internal/storage"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	redis    *storage.RedisClient
	postgres *storage.Postgres

	governor *governance.Governor
	archiver *service.MetricsArchiver
	watcher  *healthwatch.Watcher

	authService       *service.AuthService
	deploymentService *service.DeploymentService

	authHandler       *handler.AuthHandler
	deploymentHandler *handler.DeploymentHandler
	metricsHandler    *handler.MetricsHandler

	httpServer *http.Server
}

func New(cfg *config.Config, postgres *storage.Postgres, redis *storage.RedisClient) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	authRepo := repository.NewAuthRepository(postgres)
	deploymentRepo := repository.NewDeploymentRepository(postgres)
	metricsRepo := repository.NewMetricsRepository(postgres)

	authService := service.NewAuthService(authRepo, redis, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiryHours)
	deploymentService := service.NewDeploymentService(deploymentRepo)

	// One governor instance owns all rate-limit and telemetry state for
	// this process; its lifecycle matches the server's.
	governor := governance.NewGovernor(governorConfig(cfg))

	archiver := service.NewMetricsArchiver(metricsRepo, 1024)
	governor.SetSink(archiver.Sink())

	watcher := healthwatch.New(governor, notify.NewProvider(cfg.Notify), healthwatch.Config{
		Recipients: cfg.Notify.Recipients,
	})

	s := &Server{
		router:            router,
		config:            cfg,
		redis:             redis,
		postgres:          postgres,
		governor:          governor,
		archiver:          archiver,
		watcher:           watcher,
		authService:       authService,
		deploymentService: deploymentService,
		authHandler:       handler.NewAuthHandler(authService),
		deploymentHandler: handler.NewDeploymentHandler(deploymentService),
		metricsHandler:    handler.NewMetricsHandler(governor),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func governorConfig(cfg *config.Config) governance.Config {
	classes := make([]governance.ClassLimit, 0, len(cfg.Governance.Classes))
	for _, cl := range cfg.Governance.Classes {
		classes = append(classes, governance.ClassLimit{
			Name:              cl.Name,
			RequestsPerMinute: cl.RequestsPerMinute,
		})
	}

	return governance.Config{
		SlowThreshold:   time.Duration(cfg.Governance.SlowThresholdMs) * time.Millisecond,
		HistoryCapacity: cfg.Governance.HistoryCapacity,
		Window:          time.Duration(cfg.Governance.WindowSeconds) * time.Second,
		Classes:         classes,
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	// Identity resolution must precede governance so authenticated callers
	// are keyed by user ID rather than by address.
	s.router.Use(middleware.OptionalAuth(s.authService))
	s.router.Use(middleware.Governance(s.governor))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	auth := s.router.Group("/auth")
	{
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)
		auth.POST("/logout", middleware.RequireAuth(s.authService), s.authHandler.Logout)
		auth.GET("/me", middleware.RequireAuth(s.authService), s.authHandler.Me)
	}

	deployments := s.router.Group("/deployments")
	deployments.Use(middleware.RequireAuth(s.authService))
	{
		deployments.POST("", s.deploymentHandler.Create)
		deployments.GET("", s.deploymentHandler.List)
		deployments.GET("/:id", s.deploymentHandler.Get)
		deployments.GET("/:id/stats", s.deploymentHandler.Stats)
		deployments.POST("/:id/restart", s.deploymentHandler.Restart)
		deployments.DELETE("/:id", s.deploymentHandler.Delete)
	}

	metrics := s.router.Group("/metrics")
	metrics.Use(middleware.RequireAuth(s.authService))
	{
		metrics.GET("/summary", s.metricsHandler.GetSummary)
		metrics.GET("/slow-requests", s.metricsHandler.GetSlowRequests)
		metrics.GET("/health", s.metricsHandler.GetHealth)
		metrics.POST("/reset", middleware.RequireRole("admin"), s.metricsHandler.Reset)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		log.Printf("Redis health check failed: %v", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "dockhand",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
	})
}

func (s *Server) Run(addr string) error {
	s.archiver.Start()
	s.watcher.Start()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting dockhand on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then stops the watcher and flushes
// the archiver. Requests still running past the shutdown deadline lose
// their archived sample; the sink stays safe to send on.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.watcher.Stop()
	s.archiver.Stop()

	return err
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
