package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/raduhhr/contact-api/errors"
	"github.com/raduhhr/contact-api/logger"
	"github.com/raduhhr/contact-api/types"
)

// ErrorHandler converts errors attached to the gin context into the JSON
// error body. This is the single point where pipeline failures become HTTP
// responses: handlers attach typed AppErrors and return. Internal detail
// (provider errors, verifier errors, raw causes) is logged here and never
// written to the response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log := logger.GetLogger()

		if appErr, ok := err.(*apperrors.AppError); ok {
			log.Warnw("Request failed",
				"error_type", string(appErr.Type),
				"message", appErr.Message,
				"detail", appErr.Detail,
				"status", appErr.HTTPStatus,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"client_ip", c.ClientIP(),
				"request_id", c.GetString(RequestIDKey),
			)
			c.JSON(appErr.HTTPStatus, types.ErrorResponse{Error: appErr.Message})
			return
		}

		// Anything untyped is an internal fault; the caller gets no detail.
		log.Errorw("Unexpected server error",
			"error", err,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(RequestIDKey),
		)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Internal server error"})
	}
}
