package httpapi

import (
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velocity-9/v9-router/internal/platform/logger"
	"github.com/velocity-9/v9-router/internal/platform/requestid"
	"github.com/velocity-9/v9-router/internal/routererr"
)

const requestIDContextKey = "request_id"

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if id == "" {
			id = requestid.New()
		}
		c.Set(requestIDContextKey, id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

func accessLogMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.With(
			"request_id", requestIDFrom(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		).Info("http request")
	}
}

func recoverMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.With(
					"request_id", requestIDFrom(c),
					"panic", rec,
					"stack", string(debug.Stack()),
				).Error("panic recovered")
				c.Abort()
				c.String(routererr.StatusInternalRouterError, "internal router error")
			}
		}()
		c.Next()
	}
}
