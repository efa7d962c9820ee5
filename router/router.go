package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raduhhr/contact-api/config"
	apperrors "github.com/raduhhr/contact-api/errors"
	"github.com/raduhhr/contact-api/handlers"
	"github.com/raduhhr/contact-api/middleware"
	"go.uber.org/zap"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config         *config.Config
	ContactHandler *handlers.ContactHandler
	HealthHandler  *handlers.HealthHandler
	Logger         *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes
// defined. Middleware order matters: the error handler must wrap everything
// that can fail, and the security/CORS middleware must set headers before any
// response body is written so that error responses carry them too.
func SetupRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// Distinguish 405 from 404 for known paths.
	r.HandleMethodNotAllowed = true

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and Metrics Routes
	r.GET("/health", deps.HealthHandler.Liveness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Versioned API Group (v1)
	v1 := r.Group("/v1")
	{
		// OPTIONS preflight is answered inside the CORS middleware before
		// routing; only POST needs a handler.
		v1.POST("/contact", deps.ContactHandler.SubmitContact)
	}

	r.NoMethod(func(c *gin.Context) {
		_ = c.Error(apperrors.MethodNotAllowed(c.Request.Method))
		c.Abort()
	})
	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound(c.Request.URL.Path))
		c.Abort()
	})

	return r
}
