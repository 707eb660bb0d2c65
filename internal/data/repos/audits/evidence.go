package audits

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type EvidenceRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.Evidence) error
	ExistsForSource(dbc dbctx.Context, auditID, criterionID uuid.UUID, source, sourceID string) (bool, error)
	SourceIDs(dbc dbctx.Context, auditID, criterionID uuid.UUID, source string) (map[string]struct{}, error)
	ListByCriterion(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Evidence, error)
}

type evidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceRepo {
	return &evidenceRepo{db: db, log: baseLog.With("repo", "EvidenceRepo")}
}

func (r *evidenceRepo) CreateBatch(dbc dbctx.Context, rows []*types.Evidence) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Create(&rows).Error
}

func (r *evidenceRepo) ExistsForSource(dbc dbctx.Context, auditID, criterionID uuid.UUID, source, sourceID string) (bool, error) {
	var n int64
	err := dbc.Conn(r.db).Model(&types.Evidence{}).
		Where("audit_id = ? AND criterion_id = ? AND source = ? AND source_id = ?", auditID, criterionID, source, sourceID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func (r *evidenceRepo) SourceIDs(dbc dbctx.Context, auditID, criterionID uuid.UUID, source string) (map[string]struct{}, error) {
	var ids []string
	err := dbc.Conn(r.db).Model(&types.Evidence{}).
		Where("audit_id = ? AND criterion_id = ? AND source = ?", auditID, criterionID, source).
		Distinct().
		Pluck("source_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *evidenceRepo) ListByCriterion(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Evidence, error) {
	var out []*types.Evidence
	err := dbc.Conn(r.db).
		Where("audit_id = ? AND criterion_id = ?", auditID, criterionID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
