package audits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type CriterionRepo interface {
	Create(dbc dbctx.Context, c *types.Criterion) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Criterion, error)
	FindBaseByTitle(dbc dbctx.Context, parentID *uuid.UUID, title string) (*types.Criterion, error)
	CountChildren(dbc dbctx.Context, id uuid.UUID) (int64, error)
	CountAssociations(dbc dbctx.Context, id uuid.UUID) (int64, error)
	Associate(dbc dbctx.Context, auditID, criterionID uuid.UUID) error
	IsAssociated(dbc dbctx.Context, auditID, criterionID uuid.UUID) (bool, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type criterionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCriterionRepo(db *gorm.DB, baseLog *logger.Logger) CriterionRepo {
	return &criterionRepo{db: db, log: baseLog.With("repo", "CriterionRepo")}
}

func (r *criterionRepo) Create(dbc dbctx.Context, c *types.Criterion) error {
	return dbc.Conn(r.db).Create(c).Error
}

func (r *criterionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Criterion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Criterion
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *criterionRepo) FindBaseByTitle(dbc dbctx.Context, parentID *uuid.UUID, title string) (*types.Criterion, error) {
	q := dbc.Conn(r.db).Where("title = ? AND scoped_to_audit_id IS NULL", title)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	var out types.Criterion
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *criterionRepo) CountChildren(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).Model(&types.Criterion{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}

func (r *criterionRepo) CountAssociations(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).Model(&types.AuditCriterion{}).Where("criterion_id = ?", id).Count(&n).Error
	return n, err
}

func (r *criterionRepo) Associate(dbc dbctx.Context, auditID, criterionID uuid.UUID) error {
	row := &types.AuditCriterion{AuditID: auditID, CriterionID: criterionID, CreatedAt: time.Now().UTC()}
	return dbc.Conn(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

func (r *criterionRepo) IsAssociated(dbc dbctx.Context, auditID, criterionID uuid.UUID) (bool, error) {
	var n int64
	err := dbc.Conn(r.db).Model(&types.AuditCriterion{}).
		Where("audit_id = ? AND criterion_id = ?", auditID, criterionID).
		Count(&n).Error
	return n > 0, err
}

func (r *criterionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&types.Criterion{}).Error
}
