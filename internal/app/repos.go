package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/audits"
	jobrepo "github.com/yungbote/auditbridge-backend/internal/data/repos/jobs"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type Repos struct {
	Audit        audits.AuditRepo
	Company      audits.CompanyRepo
	Criterion    audits.CriterionRepo
	Evidence     audits.EvidenceRepo
	EvidenceFile audits.EvidenceFileRepo
	Question     audits.QuestionRepo
	JobRun       jobrepo.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Audit:        audits.NewAuditRepo(db, log),
		Company:      audits.NewCompanyRepo(db, log),
		Criterion:    audits.NewCriterionRepo(db, log),
		Evidence:     audits.NewEvidenceRepo(db, log),
		EvidenceFile: audits.NewEvidenceFileRepo(db, log),
		Question:     audits.NewQuestionRepo(db, log),
		JobRun:       jobrepo.NewJobRunRepo(db, log),
	}
}
