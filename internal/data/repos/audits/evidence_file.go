package audits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type EvidenceFileRepo interface {
	Create(dbc dbctx.Context, f *types.EvidenceFile) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EvidenceFile, error)
	GetByAuditAndContent(dbc dbctx.Context, auditID uuid.UUID, contentPath string) (*types.EvidenceFile, error)
	// FindCompleteByContent returns any processed file (in any audit) with these bytes.
	FindCompleteByContent(dbc dbctx.Context, contentPath string) (*types.EvidenceFile, error)
	ListByAudit(dbc dbctx.Context, auditID uuid.UUID) ([]*types.EvidenceFile, error)
	ListCompleteByAudit(dbc dbctx.Context, auditID uuid.UUID) ([]*types.EvidenceFile, error)
	ListCompleteByAudits(dbc dbctx.Context, auditIDs []uuid.UUID, onlyIDs []uuid.UUID) ([]*types.EvidenceFile, error)
	// Transition applies updates only while the row is in one of the from statuses.
	// The returned bool reports whether the row was changed.
	Transition(dbc dbctx.Context, id uuid.UUID, from []string, updates map[string]interface{}) (bool, error)
	// ReleaseStale puts a processing row back to pending when it has not been
	// touched since before.
	ReleaseStale(dbc dbctx.Context, id uuid.UUID, before time.Time) (bool, error)
	MarkComplete(dbc dbctx.Context, id uuid.UUID, text string, at time.Time) (bool, error)
	MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
}

type evidenceFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvidenceFileRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceFileRepo {
	return &evidenceFileRepo{db: db, log: baseLog.With("repo", "EvidenceFileRepo")}
}

func (r *evidenceFileRepo) Create(dbc dbctx.Context, f *types.EvidenceFile) error {
	return dbc.Conn(r.db).Create(f).Error
}

func (r *evidenceFileRepo) first(q *gorm.DB) (*types.EvidenceFile, error) {
	var out types.EvidenceFile
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *evidenceFileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EvidenceFile, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.Conn(r.db).Where("id = ?", id))
}

func (r *evidenceFileRepo) GetByAuditAndContent(dbc dbctx.Context, auditID uuid.UUID, contentPath string) (*types.EvidenceFile, error) {
	return r.first(dbc.Conn(r.db).Where("audit_id = ? AND content_path = ?", auditID, contentPath))
}

func (r *evidenceFileRepo) FindCompleteByContent(dbc dbctx.Context, contentPath string) (*types.EvidenceFile, error) {
	return r.first(dbc.Conn(r.db).
		Where("content_path = ? AND status = ? AND text_content IS NOT NULL", contentPath, types.FileStatusComplete).
		Order("processed_at ASC"))
}

func (r *evidenceFileRepo) ListByAudit(dbc dbctx.Context, auditID uuid.UUID) ([]*types.EvidenceFile, error) {
	var out []*types.EvidenceFile
	err := dbc.Conn(r.db).Where("audit_id = ?", auditID).Order("uploaded_at ASC").Find(&out).Error
	return out, err
}

func (r *evidenceFileRepo) ListCompleteByAudit(dbc dbctx.Context, auditID uuid.UUID) ([]*types.EvidenceFile, error) {
	return r.ListCompleteByAudits(dbc, []uuid.UUID{auditID}, nil)
}

func (r *evidenceFileRepo) ListCompleteByAudits(dbc dbctx.Context, auditIDs []uuid.UUID, onlyIDs []uuid.UUID) ([]*types.EvidenceFile, error) {
	out := []*types.EvidenceFile{}
	if len(auditIDs) == 0 {
		return out, nil
	}
	q := dbc.Conn(r.db).
		Where("audit_id IN ? AND status = ? AND text_content IS NOT NULL", auditIDs, types.FileStatusComplete)
	if onlyIDs != nil {
		if len(onlyIDs) == 0 {
			return out, nil
		}
		q = q.Where("id IN ?", onlyIDs)
	}
	err := q.Order("uploaded_at ASC").Find(&out).Error
	return out, err
}

func (r *evidenceFileRepo) Transition(dbc dbctx.Context, id uuid.UUID, from []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	q := dbc.Conn(r.db).Model(&types.EvidenceFile{}).Where("id = ?", id)
	if len(from) == 1 {
		q = q.Where("status = ?", from[0])
	} else if len(from) > 1 {
		q = q.Where("status IN ?", from)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *evidenceFileRepo) ReleaseStale(dbc dbctx.Context, id uuid.UUID, before time.Time) (bool, error) {
	res := dbc.Conn(r.db).Model(&types.EvidenceFile{}).
		Where("id = ? AND status = ? AND updated_at < ?", id, types.FileStatusProcessing, before).
		Updates(map[string]interface{}{
			"status":     types.FileStatusPending,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *evidenceFileRepo) MarkComplete(dbc dbctx.Context, id uuid.UUID, text string, at time.Time) (bool, error) {
	return r.Transition(dbc, id, []string{types.FileStatusProcessing}, map[string]interface{}{
		"status":       types.FileStatusComplete,
		"text_content": text,
		"error":        "",
		"processed_at": at,
	})
}

func (r *evidenceFileRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	return r.Transition(dbc, id, []string{types.FileStatusProcessing}, map[string]interface{}{
		"status":       types.FileStatusFailed,
		"text_content": gorm.Expr("NULL"),
		"error":        reason,
		"processed_at": at,
	})
}
