package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

// RequestLogger logs one structured line per request.
func RequestLogger(baseLog *logger.Logger) gin.HandlerFunc {
	log := baseLog.With("Middleware", "RequestLogger")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
