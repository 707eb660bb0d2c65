package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/audits"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	jobtypes "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

// PipelineCoordinator turns domain events into queued jobs. It validates
// what it can up front and leaves the work itself to the job handlers.
type PipelineCoordinator interface {
	OnFileUploaded(dbc dbctx.Context, file *types.EvidenceFile) (*jobtypes.JobRun, error)
	// OnExtractEvidenceRequested schedules one job per pending file, plus one
	// for text when it is not blank.
	OnExtractEvidenceRequested(dbc dbctx.Context, auditID, criterionID uuid.UUID, text string) ([]*jobtypes.JobRun, error)
	OnEvidenceParseRequested(dbc dbctx.Context, req ParseRequest) (*jobtypes.JobRun, error)
	OnQuestionsRequested(dbc dbctx.Context, auditID, criterionID uuid.UUID) (*jobtypes.JobRun, error)
	// Reprocess re-queues a failed file, or a pending one whose job was lost.
	Reprocess(dbc dbctx.Context, auditID, fileID uuid.UUID) (*jobtypes.JobRun, error)
}

type pipelineCoordinator struct {
	db            *gorm.DB
	log           *logger.Logger
	jobs          JobService
	extraction    EvidenceExtractionService
	auditRepo     audits.AuditRepo
	criterionRepo audits.CriterionRepo
	companyRepo   audits.CompanyRepo
	fileRepo      audits.EvidenceFileRepo
}

func NewPipelineCoordinator(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs JobService,
	extraction EvidenceExtractionService,
	auditRepo audits.AuditRepo,
	criterionRepo audits.CriterionRepo,
	companyRepo audits.CompanyRepo,
	fileRepo audits.EvidenceFileRepo,
) PipelineCoordinator {
	return &pipelineCoordinator{
		db:            db,
		log:           baseLog.With("service", "PipelineCoordinator"),
		jobs:          jobs,
		extraction:    extraction,
		auditRepo:     auditRepo,
		criterionRepo: criterionRepo,
		companyRepo:   companyRepo,
		fileRepo:      fileRepo,
	}
}

func (p *pipelineCoordinator) OnFileUploaded(dbc dbctx.Context, file *types.EvidenceFile) (*jobtypes.JobRun, error) {
	if file == nil || file.ID == uuid.Nil {
		return nil, fmt.Errorf("evidence file required: %w", pkgerrors.ErrInvalidArgument)
	}
	job, created, err := p.jobs.EnqueueIfIdle(dbc, jobtypes.TypeFileProcess, jobtypes.EntityEvidenceFile, file.ID, map[string]any{
		"file_id":  file.ID.String(),
		"audit_id": file.AuditID.String(),
	})
	if err != nil {
		return nil, err
	}
	if !created {
		p.log.Debug("file already has a runnable job", "file_id", file.ID)
	}
	return job, nil
}

func (p *pipelineCoordinator) OnExtractEvidenceRequested(dbc dbctx.Context, auditID, criterionID uuid.UUID, text string) ([]*jobtypes.JobRun, error) {
	if err := p.requireAuditAndCriterion(dbc, auditID, criterionID); err != nil {
		return nil, err
	}
	files, err := p.extraction.PendingFiles(dbc, auditID, criterionID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if len(files) == 0 && text == "" {
		return nil, fmt.Errorf("no unprocessed evidence files for this criterion: %w", pkgerrors.ErrNothingToProcess)
	}

	out := make([]*jobtypes.JobRun, 0, len(files)+1)
	err = dbc.Conn(p.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		for _, f := range files {
			fileID := f.ID
			job, err := p.jobs.Enqueue(inner, jobtypes.TypeEvidenceExtract, jobtypes.EntityEvidenceFile, &fileID, map[string]any{
				"audit_id":     auditID.String(),
				"criterion_id": criterionID.String(),
				"source":       types.SourceEvidenceFile,
				"file_id":      fileID.String(),
			})
			if err != nil {
				return err
			}
			out = append(out, job)
		}
		if text == "" {
			return nil
		}
		job, err := p.jobs.Enqueue(inner, jobtypes.TypeEvidenceExtract, jobtypes.EntityCriterion, &criterionID, map[string]any{
			"audit_id":     auditID.String(),
			"criterion_id": criterionID.String(),
			"source":       types.SourceDirectText,
			"text":         text,
		})
		if err != nil {
			return err
		}
		out = append(out, job)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("evidence extraction scheduled", "audit_id", auditID, "criterion_id", criterionID, "files", len(files), "direct_text", text != "")
	return out, nil
}

func (p *pipelineCoordinator) OnEvidenceParseRequested(dbc dbctx.Context, req ParseRequest) (*jobtypes.JobRun, error) {
	company, err := p.companyRepo.GetByID(dbc, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("company %s: %w", req.CompanyID, pkgerrors.ErrNotFound)
	}
	if req.ReprocessOnly && strings.TrimSpace(company.RawEvidence) == "" {
		return nil, fmt.Errorf("company %s: %w", company.ID, pkgerrors.ErrEmptyEvidence)
	}
	fileIDs := make([]string, 0, len(req.FileIDs))
	for _, id := range req.FileIDs {
		fileIDs = append(fileIDs, id.String())
	}
	return p.jobs.Enqueue(dbc, jobtypes.TypeCompanyParse, jobtypes.EntityCompany, &company.ID, map[string]any{
		"company_id":     company.ID.String(),
		"file_ids":       fileIDs,
		"text":           req.Text,
		"reprocess_only": req.ReprocessOnly,
	})
}

func (p *pipelineCoordinator) OnQuestionsRequested(dbc dbctx.Context, auditID, criterionID uuid.UUID) (*jobtypes.JobRun, error) {
	if err := p.requireAuditAndCriterion(dbc, auditID, criterionID); err != nil {
		return nil, err
	}
	return p.jobs.Enqueue(dbc, jobtypes.TypeQuestionGenerate, jobtypes.EntityCriterion, &criterionID, map[string]any{
		"audit_id":     auditID.String(),
		"criterion_id": criterionID.String(),
	})
}

func (p *pipelineCoordinator) Reprocess(dbc dbctx.Context, auditID, fileID uuid.UUID) (*jobtypes.JobRun, error) {
	file, err := p.fileRepo.GetByID(dbc, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil || file.AuditID != auditID {
		return nil, fmt.Errorf("evidence file %s: %w", fileID, pkgerrors.ErrNotFound)
	}
	switch file.Status {
	case types.FileStatusFailed:
		ok, err := p.fileRepo.Transition(dbc, fileID, []string{types.FileStatusFailed}, map[string]interface{}{
			"status": types.FileStatusPending,
			"error":  "",
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("file %s changed state concurrently: %w", fileID, pkgerrors.ErrConflict)
		}
		file.Status = types.FileStatusPending
	case types.FileStatusPending:
	default:
		return nil, fmt.Errorf("file is %s; only failed or pending files can be reprocessed: %w",
			strings.ToLower(file.Status), pkgerrors.ErrConflict)
	}
	job, err := p.OnFileUploaded(dbc, file)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("file %s is already queued: %w", fileID, pkgerrors.ErrConflict)
	}
	return job, nil
}

func (p *pipelineCoordinator) requireAuditAndCriterion(dbc dbctx.Context, auditID, criterionID uuid.UUID) error {
	audit, err := p.auditRepo.GetByID(dbc, auditID)
	if err != nil {
		return err
	}
	if audit == nil {
		return fmt.Errorf("audit %s: %w", auditID, pkgerrors.ErrNotFound)
	}
	criterion, err := p.criterionRepo.GetByID(dbc, criterionID)
	if err != nil {
		return err
	}
	if criterion == nil {
		return fmt.Errorf("criterion %s: %w", criterionID, pkgerrors.ErrNotFound)
	}
	return nil
}
