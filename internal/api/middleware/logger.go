package middleware

import (
	"time"

	"kardex-ingest/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger emits one structured log line per request
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"status_code": status,
			"latency":     time.Since(start),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		}

		switch {
		case len(c.Errors) > 0:
			fields["error"] = c.Errors.String()
			logger.WithFields(fields).Error("Request completed with errors")
		case status >= 500:
			logger.WithFields(fields).Error("Request completed with server error")
		case status >= 400:
			logger.WithFields(fields).Warn("Request completed with client error")
		default:
			logger.WithFields(fields).Info("Request completed")
		}
	}
}
