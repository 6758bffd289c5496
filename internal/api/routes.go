package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/api/handlers"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/api/middleware"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/config"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/services"
	"github.com/C3Techie/ai-doc-summarizer-service/pkg/metrics"
)

type Router struct {
	engine         *gin.Engine
	logger         *zap.Logger
	metrics        *metrics.Collector
	authHandler    *handlers.AuthHandler
	docHandler     *handlers.DocumentHandler
	authMiddleware *middleware.AuthMiddleware
	reqMiddleware  *middleware.RequestMiddleware
}

func NewRouter(
	cfg *config.Configuration,
	logger *zap.Logger,
	collector *metrics.Collector,
	authService *services.AuthService,
	docService *services.DocumentService,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.MaxMultipartMemory = cfg.Upload.MaxSizeBytes

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)

	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())
	engine.Use(middleware.CORS())

	authHandler := handlers.NewAuthHandler(authService, logger)
	docHandler := handlers.NewDocumentHandler(docService, cfg, logger)

	return &Router{
		engine:         engine,
		logger:         logger,
		metrics:        collector,
		authHandler:    authHandler,
		docHandler:     docHandler,
		authMiddleware: authMiddleware,
		reqMiddleware:  reqMiddleware,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "ai-doc-summarizer"})
	})

	r.engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"counters":  r.metrics.Counters(),
			"latencies": r.metrics.Latencies(),
			"sizes":     r.metrics.Sizes(),
		})
	})

	v1 := r.engine.Group("/api/v1")

	v1.POST("/auth/signup", r.authHandler.Signup)
	v1.POST("/auth/login", r.reqMiddleware.LoginThrottle(), r.authHandler.Login)

	authorized := v1.Group("/")
	authorized.Use(r.authMiddleware.RequireAuth())
	{
		authorized.GET("/auth/me", r.authHandler.Me)

		authorized.POST("/documents", r.docHandler.Upload)
		authorized.GET("/documents", r.docHandler.List)
		authorized.GET("/documents/:id", r.docHandler.Get)
		authorized.DELETE("/documents/:id", r.docHandler.Delete)
		authorized.POST("/documents/:id/analyze", r.docHandler.Analyze)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
