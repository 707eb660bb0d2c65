package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

// RequestLogger logs one line per request at a level chosen by status. Upload
// size is included for multipart evidence uploads.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		td := ctxutil.GetTraceData(c.Request.Context())

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td != nil {
			if td.TraceID != "" {
				fields = append(fields, "trace_id", td.TraceID)
			}
			if td.RequestID != "" {
				fields = append(fields, "request_id", td.RequestID)
			}
			if td.AuditID != "" {
				fields = append(fields, "audit_id", td.AuditID)
			}
			if td.CompanyID != "" {
				fields = append(fields, "company_id", td.CompanyID)
			}
		}
		if c.Request.Method == "POST" && c.Request.ContentLength > 0 &&
			strings.HasPrefix(c.ContentType(), "multipart/") {
			fields = append(fields, "upload_bytes", c.Request.ContentLength)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
