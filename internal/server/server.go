package server

import (
	"context"
	"fmt"
	"net/http"

	"nearhire/config"
	"nearhire/internal/handler"
	"nearhire/internal/middleware"
	"nearhire/internal/readiness"
	"nearhire/internal/transport/httpdto"
	"nearhire/internal/websocket"
	"nearhire/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Call      *handler.CallHandler
	Readiness *handler.ReadinessHandler
	WS        *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authMW gin.HandlerFunc, gate *readiness.Gate) {
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if !gate.Ready() {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(gate.Status().String(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.GET("/readiness", handlers.Readiness.Status)
	s.engine.POST("/readiness/retry", handlers.Readiness.Retry)

	s.engine.GET("/ws", handlers.WS.Connect)

	calls := s.engine.Group("/calls", authMW)
	{
		calls.POST("", handlers.Call.Initiate)
		calls.POST("/accept", handlers.Call.Accept)
		calls.POST("/reject", handlers.Call.Reject)
		calls.POST("/end", handlers.Call.End)
		calls.POST("/mute", handlers.Call.ToggleMute)
		calls.POST("/video", handlers.Call.ToggleVideo)
		calls.GET("/current", handlers.Call.Current)
		calls.GET("/history", handlers.Call.History)
	}
}

func (s *Server) Start() error {
	s.logger.Infof("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
