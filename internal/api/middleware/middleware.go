package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/api/apierror"
	"github.com/feral-file/castindex/internal/logger"
)

const REQUEST_ID_HEADER = "X-Request-ID"

// RequestID tags the request context with an id so every log line of the request carries it
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(REQUEST_ID_HEADER)
		if id == "" {
			id = ulid.Make().String()
		}
		c.Header(REQUEST_ID_HEADER, id)
		ctx := logger.WithFields(c.Request.Context(), zap.String("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Logger returns a gin middleware for structured logging using zap
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.InfoCtx(c.Request.Context(), "API request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// Recovery returns a gin middleware for panic recovery with logging
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorCtx(c.Request.Context(), fmt.Errorf("panic recovered: %v", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.NewInternalError("Internal server error"))
			}
		}()
		c.Next()
	}
}
