package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/domain/jobs"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		// Companies + audits
		&audit.Company{},
		&audit.Audit{},

		// Criteria framework
		&audit.Criterion{},
		&audit.AuditCriterion{},

		// Evidence pipeline
		&audit.EvidenceFile{},
		&audit.Evidence{},
		&audit.Question{},
		&audit.Answer{},

		// Jobs
		&jobs.JobRun{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
