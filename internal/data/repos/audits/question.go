package audits

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type QuestionRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.Question) error
	ListByCriterion(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Question, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) CreateBatch(dbc dbctx.Context, rows []*types.Question) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Omit("Answers").Create(&rows).Error
}

func (r *questionRepo) ListByCriterion(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Question, error) {
	var out []*types.Question
	err := dbc.Conn(r.db).
		Preload("Answers").
		Where("audit_id = ? AND criterion_id = ?", auditID, criterionID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
