package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/audits"
	jobrepo "github.com/yungbote/auditbridge-backend/internal/data/repos/jobs"
	"github.com/yungbote/auditbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/contentstore"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/platform/lock"
	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
)

var errBackend = errors.New("backend exploded")

// fakeSemantic records calls and answers from the configured funcs.
type fakeSemantic struct {
	mu sync.Mutex

	extract   func(text string) (types.EvidenceExtraction, error)
	questions func(evidenceText string) ([]string, error)
	summarize func(text, category string) (string, error)
	analyze   func(raw string) (types.CompanyAnalysis, error)

	extractCalls   int
	summarizeCalls []string
	analyzeInputs  []string
	questionInputs []string
}

func (f *fakeSemantic) ExtractEvidence(ctx context.Context, c *types.Criterion, text string) (types.EvidenceExtraction, error) {
	f.mu.Lock()
	f.extractCalls++
	f.mu.Unlock()
	if f.extract == nil {
		return types.EvidenceExtraction{}, nil
	}
	return f.extract(text)
}

func (f *fakeSemantic) GenerateQuestions(ctx context.Context, c *types.Criterion, evidenceText string) ([]string, error) {
	f.mu.Lock()
	f.questionInputs = append(f.questionInputs, evidenceText)
	f.mu.Unlock()
	if f.questions == nil {
		return nil, nil
	}
	return f.questions(evidenceText)
}

func (f *fakeSemantic) SummarizeForCompany(ctx context.Context, text, companyName, category string) (string, error) {
	f.mu.Lock()
	f.summarizeCalls = append(f.summarizeCalls, text)
	f.mu.Unlock()
	if f.summarize == nil {
		return "summary of " + text, nil
	}
	return f.summarize(text, category)
}

func (f *fakeSemantic) AnalyzeCompany(ctx context.Context, raw string) (types.CompanyAnalysis, error) {
	f.mu.Lock()
	f.analyzeInputs = append(f.analyzeInputs, raw)
	f.mu.Unlock()
	if f.analyze == nil {
		return types.CompanyAnalysis{Description: "A company", Size: "Small", BusinessType: "B2B"}, nil
	}
	return f.analyze(raw)
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, path string, cat extractor.Category) (string, error) {
	f.calls++
	return f.text, f.err
}

// env wires the services over a private database with stub backends.
type env struct {
	db  *gorm.DB
	sem *fakeSemantic
	ext *fakeExtractor

	auditRepo     audits.AuditRepo
	companyRepo   audits.CompanyRepo
	criterionRepo audits.CriterionRepo
	evidenceRepo  audits.EvidenceRepo
	fileRepo      audits.EvidenceFileRepo
	questionRepo  audits.QuestionRepo
	jobRepo       jobrepo.JobRunRepo

	jobs        JobService
	extraction  EvidenceExtractionService
	coordinator PipelineCoordinator
	files       EvidenceFileService
	questions   QuestionService
	profiles    CompanyProfileService
	criteria    CriterionService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	store, err := contentstore.NewLocal(log, t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	policy := retry.Policy{Attempts: 1}
	metrics := observability.New()

	e := &env{
		db:            db,
		sem:           &fakeSemantic{},
		ext:           &fakeExtractor{text: "extracted text"},
		auditRepo:     audits.NewAuditRepo(db, log),
		companyRepo:   audits.NewCompanyRepo(db, log),
		criterionRepo: audits.NewCriterionRepo(db, log),
		evidenceRepo:  audits.NewEvidenceRepo(db, log),
		fileRepo:      audits.NewEvidenceFileRepo(db, log),
		questionRepo:  audits.NewQuestionRepo(db, log),
		jobRepo:       jobrepo.NewJobRunRepo(db, log),
	}
	e.jobs = NewJobService(db, log, e.jobRepo)
	e.extraction = NewEvidenceExtractionService(db, log, e.sem, e.criterionRepo, e.fileRepo, e.evidenceRepo, policy, metrics)
	e.coordinator = NewPipelineCoordinator(db, log, e.jobs, e.extraction, e.auditRepo, e.criterionRepo, e.companyRepo, e.fileRepo)
	e.files = NewEvidenceFileService(db, log, store, e.ext, e.coordinator, e.auditRepo, e.fileRepo, metrics)
	e.questions = NewQuestionService(db, log, e.sem, e.auditRepo, e.criterionRepo, e.evidenceRepo, e.questionRepo, policy, metrics)
	e.profiles = NewCompanyProfileService(db, log, e.sem, lock.NewMemory(), e.companyRepo, e.auditRepo, e.fileRepo, policy, metrics)
	e.criteria = NewCriterionService(db, log, e.criterionRepo)
	return e
}
