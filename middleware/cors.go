package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/raduhhr/contact-api/config"
	apperrors "github.com/raduhhr/contact-api/errors"
)

const corsMaxAgeSeconds = "86400"

// CORSMiddleware enforces the browser-origin allow-list and attaches CORS
// headers to every response, success or error, so the page can always read
// the body. A request carrying an Origin header outside the allow-list is
// rejected with 403 regardless of method; requests without an Origin header
// (non-browser or same-origin callers) pass through. Preflight OPTIONS
// requests are answered here with 204 and no body.
func CORSMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	allowMethods := []string{"POST", "OPTIONS"}
	allowHeaders := []string{"Content-Type"}

	// Wildcard configuration falls back to the stock CORS handler. Useful
	// for local development only; production deployments list exact origins.
	if len(cfg.AllowedOrigins) == 0 || containsOrigin(cfg.AllowedOrigins, "*") {
		return cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    allowMethods,
			AllowHeaders:    allowHeaders,
			MaxAge:          24 * time.Hour,
		})
	}

	methodsHeader := strings.Join(allowMethods, ", ")
	headersHeader := strings.Join(allowHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Responses differ by Origin, so caches must key on it. Set even on
		// rejections.
		c.Header("Vary", "Origin")
		c.Header("Access-Control-Allow-Methods", methodsHeader)
		c.Header("Access-Control-Allow-Headers", headersHeader)
		c.Header("Access-Control-Max-Age", corsMaxAgeSeconds)

		if origin != "" {
			if !containsOrigin(cfg.AllowedOrigins, origin) {
				_ = c.Error(apperrors.OriginNotAllowed(origin))
				c.Abort()
				return
			}
			c.Header("Access-Control-Allow-Origin", origin)
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// containsOrigin checks if a string is present in the allowed origins slice
func containsOrigin(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}
