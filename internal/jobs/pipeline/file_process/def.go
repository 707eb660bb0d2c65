package file_process

import (
	"time"

	jobtypes "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

const defaultStaleAfter = 30 * time.Minute

type Pipeline struct {
	log        *logger.Logger
	files      services.EvidenceFileService
	staleAfter time.Duration
}

// New takes the age after which a file still marked processing is assumed
// abandoned by a dead run. It should match the worker's stale-claim window.
func New(baseLog *logger.Logger, files services.EvidenceFileService, staleAfter time.Duration) *Pipeline {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Pipeline{
		log:        baseLog.With("job", "file_process"),
		files:      files,
		staleAfter: staleAfter,
	}
}

func (p *Pipeline) Type() string { return jobtypes.TypeFileProcess }
