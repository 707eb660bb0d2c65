package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/http"
	httpH "github.com/yungbote/auditbridge-backend/internal/http/handlers"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type Handlers struct {
	Health       *httpH.HealthHandler
	EvidenceFile *httpH.EvidenceFileHandler
	Evidence     *httpH.EvidenceHandler
	Criterion    *httpH.CriterionHandler
	Company      *httpH.CompanyHandler
	Job          *httpH.JobHandler
}

func healthProbes(db *gorm.DB, clients *Clients) map[string]httpH.Probe {
	probes := map[string]httpH.Probe{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients != nil && clients.Redis != nil {
		rdb := clients.Redis
		probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return probes
}

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, clients *Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(healthProbes(db, clients)),
		EvidenceFile: httpH.NewEvidenceFileHandler(log, services.EvidenceFile, services.Coordinator, cfg.MaxUploadMB<<20),
		Evidence:     httpH.NewEvidenceHandler(services.Extraction, services.Questions, services.Coordinator),
		Criterion:    httpH.NewCriterionHandler(services.Criteria),
		Company:      httpH.NewCompanyHandler(services.Coordinator),
		Job:          httpH.NewJobHandler(services.Jobs),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		ServiceName:         cfg.Telemetry.ServiceName,
		TracingEnabled:      cfg.Telemetry.OtelEnabled,
		CORSOrigins:         cfg.corsOrigins(),
		HealthHandler:       handlers.Health,
		EvidenceFileHandler: handlers.EvidenceFile,
		EvidenceHandler:     handlers.Evidence,
		CriterionHandler:    handlers.Criterion,
		CompanyHandler:      handlers.Company,
		JobHandler:          handlers.Job,
	})
}
