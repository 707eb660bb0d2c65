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
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
)

type QuestionService interface {
	// Generate asks the backend for follow-up questions over the evidence
	// gathered so far and stores every one it returns.
	Generate(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Question, error)
	List(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Question, error)
}

type questionService struct {
	db            *gorm.DB
	log           *logger.Logger
	semantic      aiclient.Semantic
	auditRepo     audits.AuditRepo
	criterionRepo audits.CriterionRepo
	evidenceRepo  audits.EvidenceRepo
	questionRepo  audits.QuestionRepo
	retry         retry.Policy
	metrics       *observability.Metrics
}

func NewQuestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	semantic aiclient.Semantic,
	auditRepo audits.AuditRepo,
	criterionRepo audits.CriterionRepo,
	evidenceRepo audits.EvidenceRepo,
	questionRepo audits.QuestionRepo,
	policy retry.Policy,
	metrics *observability.Metrics,
) QuestionService {
	return &questionService{
		db:            db,
		log:           baseLog.With("service", "QuestionService"),
		semantic:      semantic,
		auditRepo:     auditRepo,
		criterionRepo: criterionRepo,
		evidenceRepo:  evidenceRepo,
		questionRepo:  questionRepo,
		retry:         policy,
		metrics:       metrics,
	}
}

func (s *questionService) Generate(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Question, error) {
	audit, err := s.auditRepo.GetByID(dbc, auditID)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, fmt.Errorf("audit %s: %w", auditID, pkgerrors.ErrNotFound)
	}
	criterion, err := s.criterionRepo.GetByID(dbc, criterionID)
	if err != nil {
		return nil, err
	}
	if criterion == nil {
		return nil, fmt.Errorf("criterion %s: %w", criterionID, pkgerrors.ErrNotFound)
	}

	evidence, err := s.evidenceRepo.ListByCriterion(dbc, auditID, criterionID)
	if err != nil {
		return nil, err
	}
	evidenceText := EvidenceText(evidence)

	start := time.Now()
	texts, err := retry.Value(dbc.Ctx, s.retry, func(ctx context.Context) ([]string, error) {
		return s.semantic.GenerateQuestions(ctx, criterion, evidenceText)
	})
	if err != nil {
		s.metrics.ObserveLLM("generate_questions", "error", time.Since(start))
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	s.metrics.ObserveLLM("generate_questions", "ok", time.Since(start))

	now := time.Now().UTC()
	rows := make([]*types.Question, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		rows = append(rows, &types.Question{
			ID:          uuid.New(),
			AuditID:     auditID,
			CriterionID: criterionID,
			Text:        t,
			CreatedAt:   now,
		})
	}
	if err := s.questionRepo.CreateBatch(dbc, rows); err != nil {
		return nil, fmt.Errorf("persist questions: %w", err)
	}
	s.log.Info("questions generated",
		"audit_id", auditID,
		"criterion_id", criterionID,
		"evidence_rows", len(evidence),
		"questions", len(rows),
	)
	return rows, nil
}

func (s *questionService) List(dbc dbctx.Context, auditID, criterionID uuid.UUID) ([]*types.Question, error) {
	return s.questionRepo.ListByCriterion(dbc, auditID, criterionID)
}

// EvidenceText renders evidence rows as the "Summary: ..." / "Quote: ..."
// blocks the question prompt expects, in stored order.
func EvidenceText(rows []*types.Evidence) string {
	var b strings.Builder
	for _, e := range rows {
		switch e.EvidenceType {
		case types.EvidenceTypeSummary:
			b.WriteString("Summary: ")
		case types.EvidenceTypeQuote:
			b.WriteString("Quote: ")
		default:
			continue
		}
		b.WriteString(e.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}
