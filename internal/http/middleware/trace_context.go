package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stores trace and request ids on the request context and
// echoes them in response headers. Audit and company ids from the matched
// route are recorded as well, so jobs enqueued by the request inherit them.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		span := trace.SpanFromContext(c.Request.Context())
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" && span.SpanContext().HasTraceID() {
			traceID = span.SpanContext().TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		td := &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
			AuditID:   routeUUID(c, "audit_id"),
			CompanyID: routeUUID(c, "company_id"),
		}
		if td.AuditID != "" {
			span.SetAttributes(attribute.String("audit.id", td.AuditID))
		}
		if td.CompanyID != "" {
			span.SetAttributes(attribute.String("company.id", td.CompanyID))
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// routeUUID returns the named path param when it is a well-formed uuid.
// Malformed ids are left to the handler to reject.
func routeUUID(c *gin.Context, name string) string {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return ""
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}
