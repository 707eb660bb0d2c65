package evidence_extract

import (
	jobtypes "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type Pipeline struct {
	log        *logger.Logger
	extraction services.EvidenceExtractionService
}

func New(baseLog *logger.Logger, extraction services.EvidenceExtractionService) *Pipeline {
	return &Pipeline{
		log:        baseLog.With("job", "evidence_extract"),
		extraction: extraction,
	}
}

func (p *Pipeline) Type() string { return jobtypes.TypeEvidenceExtract }
