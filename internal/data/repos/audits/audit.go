package audits

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type AuditRepo interface {
	Create(dbc dbctx.Context, a *types.Audit) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Audit, error)
	ListIDsByCompany(dbc dbctx.Context, companyID uuid.UUID) ([]uuid.UUID, error)
}

type auditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	return &auditRepo{db: db, log: baseLog.With("repo", "AuditRepo")}
}

func (r *auditRepo) Create(dbc dbctx.Context, a *types.Audit) error {
	return dbc.Conn(r.db).Create(a).Error
}

func (r *auditRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Audit, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Audit
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *auditRepo) ListIDsByCompany(dbc dbctx.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	if companyID == uuid.Nil {
		return out, nil
	}
	var rows []types.Audit
	if err := dbc.Conn(r.db).Select("id").Where("company_id = ?", companyID).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, a := range rows {
		out = append(out, a.ID)
	}
	return out, nil
}
