package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/auditbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/auditbridge-backend/internal/http/middleware"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string

	HealthHandler       *httpH.HealthHandler
	EvidenceFileHandler *httpH.EvidenceFileHandler
	EvidenceHandler     *httpH.EvidenceHandler
	CriterionHandler    *httpH.CriterionHandler
	CompanyHandler      *httpH.CompanyHandler
	JobHandler          *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Evidence files
		if cfg.EvidenceFileHandler != nil {
			api.POST("/audits/:audit_id/evidence-files", cfg.EvidenceFileHandler.Upload)
			api.GET("/audits/:audit_id/evidence-files/:file_id", cfg.EvidenceFileHandler.Get)
			api.POST("/audits/:audit_id/evidence-files/:file_id/actions/reprocess", cfg.EvidenceFileHandler.Reprocess)
		}

		// Evidence and questions per criterion
		if cfg.EvidenceHandler != nil {
			api.POST("/audits/:audit_id/criteria/:criterion_id/actions/extract-evidence", cfg.EvidenceHandler.Extract)
			api.GET("/audits/:audit_id/criteria/:criterion_id/unextracted-evidence", cfg.EvidenceHandler.ListUnextracted)
			api.GET("/audits/:audit_id/criteria/:criterion_id/evidence", cfg.EvidenceHandler.List)
			api.POST("/audits/:audit_id/criteria/:criterion_id/questions", cfg.EvidenceHandler.RequestQuestions)
			api.GET("/audits/:audit_id/criteria/:criterion_id/questions", cfg.EvidenceHandler.ListQuestions)
		}

		// Criteria
		if cfg.CriterionHandler != nil {
			api.DELETE("/criteria/custom/:criterion_id", cfg.CriterionHandler.DeleteCustom)
		}

		// Company profile
		if cfg.CompanyHandler != nil {
			api.POST("/companies/:company_id/evidence", cfg.CompanyHandler.ParseEvidence)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:job_id", cfg.JobHandler.GetJob)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "route not found", "code": "not_found"}})
	})
	return r
}
