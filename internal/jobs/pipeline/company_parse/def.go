package company_parse

import (
	jobtypes "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type Pipeline struct {
	log      *logger.Logger
	profiles services.CompanyProfileService
}

func New(baseLog *logger.Logger, profiles services.CompanyProfileService) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", "company_parse"),
		profiles: profiles,
	}
}

func (p *Pipeline) Type() string { return jobtypes.TypeCompanyParse }
