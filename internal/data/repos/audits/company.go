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

type CompanyRepo interface {
	Create(dbc dbctx.Context, company *types.Company) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Company, error)
	// GetByIDForUpdate row-locks the company for the rest of dbc.Tx.
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Company, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type companyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	return &companyRepo{db: db, log: baseLog.With("repo", "CompanyRepo")}
}

func (r *companyRepo) Create(dbc dbctx.Context, company *types.Company) error {
	return dbc.Conn(r.db).Create(company).Error
}

func (r *companyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Company, error) {
	return r.get(dbc.Conn(r.db), id)
}

func (r *companyRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Company, error) {
	return r.get(dbc.Conn(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *companyRepo) get(q *gorm.DB, id uuid.UUID) (*types.Company, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Company
	if err := q.Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *companyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).Model(&types.Company{}).Where("id = ?", id).Updates(updates).Error
}
