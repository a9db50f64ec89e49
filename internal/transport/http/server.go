package http

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appsvc "ajiri/internal/app"
	"ajiri/internal/bootstrap"
	"ajiri/internal/cache"
	"ajiri/internal/ratelimit"
	"ajiri/internal/repository"
	"ajiri/internal/transport/http/handler"
	"ajiri/internal/transport/http/middleware"
	"ajiri/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLog(),
		middleware.Metrics(app.Metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(),
	)

	userRepo := repository.NewUserRepository(app.DB)
	sessionRepo := repository.NewProcessingSessionRepository(app.DB)
	chatRepo := repository.NewChatRepository(app.DB)
	analyticsRepo := repository.NewAnalyticsRepository(app.DB)
	usageRepo := repository.NewUsageRepository(app.DB)

	var (
		historyCache appsvc.HistoryCache
		limiter      middleware.Limiter
		store        appsvc.ObjectStore
		publisher    appsvc.UsagePublisher
	)
	if app.Redis != nil {
		historyCache = cache.NewHistoryCache(app.Redis, cfg.HistoryTTL())
		l, err := ratelimit.NewFixedWindowLimiter(app.Redis, cfg.App.Name+":ratelimit", cfg.Auth.RateLimitPerMinute, time.Minute)
		if err != nil {
			slog.Warn("auth rate limit disabled", "error", err)
		} else {
			limiter = l
		}
	}
	if app.Store != nil {
		store = app.Store
	}
	if app.UsagePublisher != nil {
		publisher = app.UsagePublisher
	}

	authService := appsvc.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.JWTExpiration(), cfg.Auth.BcryptCost)
	documentService := appsvc.NewDocumentService(sessionRepo, analyticsRepo, app.OCR, store, app.Metrics, cfg.MaxUploadBytes())
	chatService := appsvc.NewChatService(chatRepo, app.LLM, historyCache, app.Metrics)
	analyticsService := appsvc.NewAnalyticsService(analyticsRepo)
	usageService := appsvc.NewUsageService(usageRepo, publisher)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(chatService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	requireAuth := middleware.AuthJWT(cfg.Auth.JWTSecret)
	api := router.Group(cfg.App.APIPrefix)
	api.Use(middleware.Usage(usageService, cfg.App.APIPrefix))
	api.GET("/health", healthHandler.Check)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", middleware.RateLimit(limiter), authHandler.Register)
	authGroup.POST("/login", middleware.RateLimit(limiter), authHandler.Login)
	authGroup.GET("/profile", requireAuth, authHandler.Profile)

	documentGroup := api.Group("/documents", requireAuth)
	documentGroup.POST("/process", documentHandler.Process)
	documentGroup.GET("/history", documentHandler.History)
	documentGroup.GET("/stats", documentHandler.Stats)

	chatGroup := api.Group("/chat", requireAuth)
	chatGroup.POST("/ask", chatHandler.Ask)
	chatGroup.POST("/quick-ask", chatHandler.QuickAsk)
	chatGroup.GET("/history/:sessionId", chatHandler.History)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.DELETE("/sessions/:sessionId", chatHandler.DeleteSession)

	analyticsGroup := api.Group("/analytics", requireAuth)
	analyticsGroup.GET("/dashboard", analyticsHandler.Dashboard)
	analyticsGroup.GET("/trends", analyticsHandler.Trends)

	router.NoRoute(noRoute(cfg.App.APIPrefix, cfg.App.WebDir))
	return router
}

// noRoute serves the SPA bundle for unknown GET paths outside the API and a JSON 404 otherwise.
func noRoute(apiPrefix, webDir string) gin.HandlerFunc {
	index := filepath.Join(webDir, "index.html")
	_, err := os.Stat(index)
	hasSPA := webDir != "" && err == nil
	root := http.Dir(webDir)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !hasSPA || strings.HasPrefix(path, apiPrefix+"/") || path == apiPrefix ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			response.Error(c, http.StatusNotFound, "Route not found")
			return
		}
		if f, err := root.Open(path); err == nil {
			stat, statErr := f.Stat()
			_ = f.Close()
			if statErr == nil && !stat.IsDir() {
				c.FileFromFS(path, root)
				return
			}
		}
		c.File(index)
	}
}
