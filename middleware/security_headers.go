package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/raduhhr/contact-api/config"
)

// SecurityHeadersMiddleware adds security-related HTTP headers to all
// responses, including error responses. These headers help protect against
// common web vulnerabilities like clickjacking, XSS attacks, and MIME type
// sniffing.
func SecurityHeadersMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// X-Frame-Options: Prevents clickjacking attacks by disallowing the
		// response from being embedded in frames, iframes, or objects
		c.Header("X-Frame-Options", "DENY")

		// X-Content-Type-Options: Prevents MIME type sniffing by forcing
		// browsers to respect the declared Content-Type
		c.Header("X-Content-Type-Options", "nosniff")

		// X-XSS-Protection: Enables the browser's built-in XSS filter
		// (legacy header, but still useful for older browsers)
		c.Header("X-XSS-Protection", "1; mode=block")

		// Referrer-Policy: Controls how much referrer information is sent with requests
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Content-Security-Policy: this API serves JSON only, nothing may be
		// loaded or framed
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Strict-Transport-Security (HSTS): Forces HTTPS connections.
		// Only enabled in production to avoid issues during local development
		if cfg.IsProduction() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
