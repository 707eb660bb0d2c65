package question_generate

import (
	jobtypes "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type Pipeline struct {
	log       *logger.Logger
	questions services.QuestionService
}

func New(baseLog *logger.Logger, questions services.QuestionService) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", "question_generate"),
		questions: questions,
	}
}

func (p *Pipeline) Type() string { return jobtypes.TypeQuestionGenerate }
