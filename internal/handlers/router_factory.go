// Package handlers wires the hub's HTTP routes and websocket sessions.
package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"translatorhub/internal/config"
	"translatorhub/internal/languages"
	"translatorhub/internal/middleware"
	"translatorhub/internal/observability"
	"translatorhub/internal/version"
)

// healthService is the service name reported by /health and /version
const healthService = "hub"

// contentSecurityPolicy allows the hub's own page plus its websocket
const contentSecurityPolicy = "default-src 'self'; connect-src 'self' ws: wss:; img-src 'self' data: blob:; media-src 'self' data: blob:"

// NewRouter creates a new router with all the necessary middleware and routes
func NewRouter(
	cfg *config.Config,
	table *languages.Table,
	newController ControllerFactory,
	logger *observability.Logger,
	instruments *observability.Instruments,
	janitor CacheJanitor,
) *gin.Engine {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(middleware.RequestLogger(logger))

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": healthService})
	})

	// OpenTelemetry tracing, then error attributes on the still-open span
	router.Use(observability.GinMiddleware(cfg.OpenTelemetry.ServiceName))
	router.Use(observability.GinErrorAttributes())

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	secureConfig.ContentSecurityPolicy = contentSecurityPolicy
	router.Use(secure.New(secureConfig))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get(healthService))
	})

	languagesHandler := NewLanguagesHandler(table, cfg)
	hubHandler := NewHubHandler(cfg, newController, logger, instruments)

	v1 := router.Group("/v1")
	{
		v1.GET("/languages", languagesHandler.List)
		v1.GET("/hub", hubHandler.ServeWS)
	}

	// Janitor routes exist only while the cache cleanup worker runs
	if janitor != nil {
		janitorHandler := NewJanitorHandler(janitor)
		v1.GET("/cache/janitor", janitorHandler.GetDetails)
		v1.POST("/cache/janitor/run", janitorHandler.TriggerRun)
	}

	index := NewRouteListingHandler(healthService)
	router.GET("/", index.List)
	index.CollectRoutes(router)

	return router
}
