package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	aiclient "github.com/yungbote/auditbridge-backend/internal/clients/openai"
	"github.com/yungbote/auditbridge-backend/internal/data/repos/audits"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/contentstore"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/quote"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
)

// Extraction outcomes.
const (
	OutcomeSkippedProcessed = "skipped_processed"
	OutcomeSkippedNoText    = "skipped_no_text"
	OutcomeNoEvidence       = "no_evidence"
	OutcomeExtracted        = "extracted"
	OutcomeBackendError     = "backend_error"
)

type ExtractionReport struct {
	AuditID     uuid.UUID `json:"audit_id"`
	CriterionID uuid.UUID `json:"criterion_id"`
	Source      string    `json:"source"`
	SourceID    string    `json:"source_id"`
	Outcome     string    `json:"outcome"`
	Created     int       `json:"created"`
	// Located counts quotes whose position in the source text was found.
	Located int    `json:"located"`
	Error   string `json:"error,omitempty"`
}

type EvidenceExtractionService interface {
	ExtractForFile(dbc dbctx.Context, auditID, criterionID, fileID uuid.UUID) (ExtractionReport, error)
	ExtractFromText(dbc dbctx.Context, auditID, criterionID uuid.UUID, text string) (ExtractionReport, error)
	// PendingFiles lists the audit's processed files that have no evidence
	// for the criterion yet.
	PendingFiles(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.EvidenceFile, error)
	ListEvidence(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Evidence, error)
}

type evidenceExtractionService struct {
	db            *gorm.DB
	log           *logger.Logger
	semantic      aiclient.Semantic
	criterionRepo audits.CriterionRepo
	fileRepo      audits.EvidenceFileRepo
	evidenceRepo  audits.EvidenceRepo
	retry         retry.Policy
	metrics       *observability.Metrics
}

func NewEvidenceExtractionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	semantic aiclient.Semantic,
	criterionRepo audits.CriterionRepo,
	fileRepo audits.EvidenceFileRepo,
	evidenceRepo audits.EvidenceRepo,
	policy retry.Policy,
	metrics *observability.Metrics,
) EvidenceExtractionService {
	return &evidenceExtractionService{
		db:            db,
		log:           baseLog.With("service", "EvidenceExtractionService"),
		semantic:      semantic,
		criterionRepo: criterionRepo,
		fileRepo:      fileRepo,
		evidenceRepo:  evidenceRepo,
		retry:         policy,
		metrics:       metrics,
	}
}

func (s *evidenceExtractionService) ExtractForFile(dbc dbctx.Context, auditID, criterionID, fileID uuid.UUID) (ExtractionReport, error) {
	report := ExtractionReport{
		AuditID:     auditID,
		CriterionID: criterionID,
		Source:      types.SourceEvidenceFile,
		SourceID:    fileID.String(),
	}
	criterion, err := s.criterionRepo.GetByID(dbc, criterionID)
	if err != nil {
		return report, err
	}
	if criterion == nil {
		return report, fmt.Errorf("criterion %s: %w", criterionID, pkgerrors.ErrNotFound)
	}

	done, err := s.evidenceRepo.ExistsForSource(dbc, auditID, criterionID, report.Source, report.SourceID)
	if err != nil {
		return report, err
	}
	if done {
		return s.finish(report, OutcomeSkippedProcessed), nil
	}

	file, err := s.fileRepo.GetByID(dbc, fileID)
	if err != nil {
		return report, err
	}
	if file == nil || file.AuditID != auditID {
		return report, fmt.Errorf("evidence file %s: %w", fileID, pkgerrors.ErrNotFound)
	}
	if !file.HasText() {
		return s.finish(report, OutcomeSkippedNoText), nil
	}
	return s.extract(dbc, criterion, report, *file.TextContent)
}

func (s *evidenceExtractionService) ExtractFromText(dbc dbctx.Context, auditID, criterionID uuid.UUID, text string) (ExtractionReport, error) {
	report := ExtractionReport{
		AuditID:     auditID,
		CriterionID: criterionID,
		Source:      types.SourceDirectText,
		SourceID:    contentstore.Key([]byte(text), ""),
	}
	if strings.TrimSpace(text) == "" {
		return report, fmt.Errorf("text required: %w", pkgerrors.ErrInvalidArgument)
	}
	criterion, err := s.criterionRepo.GetByID(dbc, criterionID)
	if err != nil {
		return report, err
	}
	if criterion == nil {
		return report, fmt.Errorf("criterion %s: %w", criterionID, pkgerrors.ErrNotFound)
	}
	done, err := s.evidenceRepo.ExistsForSource(dbc, auditID, criterionID, report.Source, report.SourceID)
	if err != nil {
		return report, err
	}
	if done {
		return s.finish(report, OutcomeSkippedProcessed), nil
	}
	return s.extract(dbc, criterion, report, text)
}

func (s *evidenceExtractionService) extract(dbc dbctx.Context, criterion *types.Criterion, report ExtractionReport, text string) (ExtractionReport, error) {
	start := time.Now()
	result, err := retry.Value(dbc.Ctx, s.retry, func(ctx context.Context) (types.EvidenceExtraction, error) {
		return s.semantic.ExtractEvidence(ctx, criterion, text)
	})
	if err != nil {
		s.metrics.ObserveLLM("extract_evidence", "error", time.Since(start))
		// A failed backend call yields no evidence; the pair stays unprocessed
		// and a later request retries it.
		s.log.Warn("evidence extraction backend failed",
			"audit_id", report.AuditID,
			"criterion_id", report.CriterionID,
			"source", report.Source,
			"source_id", report.SourceID,
			"error", err,
		)
		report.Error = err.Error()
		return s.finish(report, OutcomeBackendError), nil
	}
	s.metrics.ObserveLLM("extract_evidence", "ok", time.Since(start))

	rows, located := buildEvidence(report, result, text)
	if len(rows) == 0 {
		return s.finish(report, OutcomeNoEvidence), nil
	}

	outcome := OutcomeExtracted
	err = dbc.Conn(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		done, err := s.evidenceRepo.ExistsForSource(inner, report.AuditID, report.CriterionID, report.Source, report.SourceID)
		if err != nil {
			return err
		}
		if done {
			outcome = OutcomeSkippedProcessed
			return nil
		}
		return s.evidenceRepo.CreateBatch(inner, rows)
	})
	if err != nil {
		return report, fmt.Errorf("persist evidence: %w", err)
	}
	if outcome == OutcomeExtracted {
		report.Created = len(rows)
		report.Located = located
	}
	return s.finish(report, outcome), nil
}

func (s *evidenceExtractionService) finish(report ExtractionReport, outcome string) ExtractionReport {
	report.Outcome = outcome
	s.metrics.IncExtraction(outcome)
	s.log.Debug("evidence extraction finished",
		"audit_id", report.AuditID,
		"criterion_id", report.CriterionID,
		"source_id", report.SourceID,
		"outcome", outcome,
		"created", report.Created,
	)
	return report
}

// buildEvidence turns one backend result into rows: the summary first, then
// one row per non-blank quote with its located offset when found.
func buildEvidence(report ExtractionReport, result types.EvidenceExtraction, text string) ([]*types.Evidence, int) {
	if result.Empty() {
		return nil, 0
	}
	now := time.Now().UTC()
	row := func(content, kind string) *types.Evidence {
		return &types.Evidence{
			ID:           uuid.New(),
			AuditID:      report.AuditID,
			CriterionID:  report.CriterionID,
			Content:      content,
			EvidenceType: kind,
			Source:       report.Source,
			SourceID:     report.SourceID,
			CreatedAt:    now,
		}
	}

	rows := []*types.Evidence{}
	if summary := strings.TrimSpace(result.Summary); summary != "" {
		rows = append(rows, row(summary, types.EvidenceTypeSummary))
	}
	located := 0
	for _, q := range result.Quotes {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		r := row(q, types.EvidenceTypeQuote)
		if pos, ok := quote.Locate(q, text); ok {
			p := pos
			r.StartPosition = &p
			located++
		}
		rows = append(rows, r)
	}
	return rows, located
}

func (s *evidenceExtractionService) PendingFiles(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.EvidenceFile, error) {
	files, err := s.fileRepo.ListCompleteByAudit(dbc, auditID)
	if err != nil {
		return nil, err
	}
	done, err := s.evidenceRepo.SourceIDs(dbc, auditID, criterionID, types.SourceEvidenceFile)
	if err != nil {
		return nil, err
	}
	out := make([]*types.EvidenceFile, 0, len(files))
	for _, f := range files {
		if !f.HasText() {
			continue
		}
		if _, ok := done[f.ID.String()]; ok {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *evidenceExtractionService) ListEvidence(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Evidence, error) {
	return s.evidenceRepo.ListByCriterion(dbc, auditID, criterionID)
}
