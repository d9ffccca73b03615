package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
)

const (
	REQUEST_ID_HEADER            = "X-Request-ID"
	REQUEST_ID_KEY    contextKey = "request_id"
)

// RequestID tags every request with a ULID, reusing the caller's X-Request-ID when present.
// The ID is attached to the request logger so executor logs carry it too.
func RequestID(clock adapter.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(REQUEST_ID_HEADER)
		if id == "" {
			id = ulid.MustNewDefault(clock.Now()).String()
		}

		c.Set(string(REQUEST_ID_KEY), id)
		c.Header(REQUEST_ID_HEADER, id)
		c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(), zap.String("request_id", id)))

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

		duration := time.Since(start)

		logger.InfoCtx(c.Request.Context(), "API request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
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
				c.AbortWithStatusJSON(500, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
