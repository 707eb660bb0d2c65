package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	aiclient "github.com/yungbote/auditbridge-backend/internal/clients/openai"
	"github.com/yungbote/auditbridge-backend/internal/data/repos/audits"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/contentstore"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/lock"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
)

const (
	directTextCategory = "text"
	rawEvidenceSep     = "\n\n"
)

type ParseRequest struct {
	CompanyID uuid.UUID   `json:"company_id"`
	FileIDs   []uuid.UUID `json:"file_ids,omitempty"`
	Text      string      `json:"text,omitempty"`
	// ReprocessOnly re-derives the profile from the existing buffer without
	// folding anything new.
	ReprocessOnly bool `json:"reprocess_only,omitempty"`
}

type ParseResult struct {
	CompanyID    uuid.UUID   `json:"company_id"`
	FoldedFiles  []uuid.UUID `json:"folded_files"`
	SkippedFiles []uuid.UUID `json:"skipped_files,omitempty"`
	FoldedText   bool        `json:"folded_text"`
	Derived      bool        `json:"derived"`
}

type CompanyProfileService interface {
	Parse(dbc dbctx.Context, req ParseRequest) (*ParseResult, error)
}

type companyProfileService struct {
	db          *gorm.DB
	log         *logger.Logger
	semantic    aiclient.Semantic
	locker      lock.Locker
	companyRepo audits.CompanyRepo
	auditRepo   audits.AuditRepo
	fileRepo    audits.EvidenceFileRepo
	retry       retry.Policy
	metrics     *observability.Metrics
}

func NewCompanyProfileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	semantic aiclient.Semantic,
	locker lock.Locker,
	companyRepo audits.CompanyRepo,
	auditRepo audits.AuditRepo,
	fileRepo audits.EvidenceFileRepo,
	policy retry.Policy,
	metrics *observability.Metrics,
) CompanyProfileService {
	return &companyProfileService{
		db:          db,
		log:         baseLog.With("service", "CompanyProfileService"),
		semantic:    semantic,
		locker:      locker,
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		fileRepo:    fileRepo,
		retry:       policy,
		metrics:     metrics,
	}
}

func (s *companyProfileService) Parse(dbc dbctx.Context, req ParseRequest) (*ParseResult, error) {
	company, err := s.companyRepo.GetByID(dbc, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("company %s: %w", req.CompanyID, pkgerrors.ErrNotFound)
	}
	res := &ParseResult{CompanyID: company.ID, FoldedFiles: []uuid.UUID{}}

	var foldErr error
	if !req.ReprocessOnly {
		company, foldErr = s.fold(dbc, company, req, res)
		if company == nil {
			return res, foldErr
		}
	}

	added := len(res.FoldedFiles) > 0 || res.FoldedText
	if !req.ReprocessOnly && !added && company.UpdatedFromEvidence {
		s.log.Debug("nothing new to fold; profile left as is", "company_id", company.ID)
		return res, foldErr
	}
	if err := s.derive(dbc, company); err != nil {
		return res, errors.Join(foldErr, err)
	}
	res.Derived = true
	return res, foldErr
}

type foldBlock struct {
	fileID uuid.UUID
	text   string
}

// fold appends per-file summaries (and the direct text summary) to the
// company's raw evidence buffer. Summaries are produced before the row lock
// is taken. The returned company reflects the committed buffer.
func (s *companyProfileService) fold(dbc dbctx.Context, company *types.Company, req ParseRequest, res *ParseResult) (*types.Company, error) {
	release, err := s.locker.Acquire(dbc.Ctx, "company-profile:"+company.ID.String())
	if err != nil {
		return nil, fmt.Errorf("acquire company lock: %w", err)
	}
	defer release()

	// Re-read under the lock so the processed set is current.
	id := company.ID
	company, err = s.companyRepo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("reload company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company %s: %w", id, pkgerrors.ErrNotFound)
	}

	auditIDs, err := s.auditRepo.ListIDsByCompany(dbc, company.ID)
	if err != nil {
		return nil, err
	}
	var only []uuid.UUID
	if len(req.FileIDs) > 0 {
		only = req.FileIDs
	}
	files, err := s.fileRepo.ListCompleteByAudits(dbc, auditIDs, only)
	if err != nil {
		return nil, err
	}

	processed := map[uuid.UUID]bool{}
	for _, id := range company.ProcessedFiles() {
		processed[id] = true
	}

	blocks := []foldBlock{}
	for _, f := range files {
		if processed[f.ID] || !f.HasText() {
			continue
		}
		summary, err := s.summarize(dbc.Ctx, *f.TextContent, company.Name, f.Category)
		if err != nil {
			// Left out of the processed set so the next parse retries it.
			s.log.Warn("company summarization failed; file skipped",
				"company_id", company.ID, "file_id", f.ID, "error", err)
			res.SkippedFiles = append(res.SkippedFiles, f.ID)
			continue
		}
		blocks = append(blocks, foldBlock{
			fileID: f.ID,
			text:   "=== This is information gathered from the file " + f.Filename + " ===" + rawEvidenceSep + summary,
		})
	}

	var textErr error
	textBlock := ""
	textKey := ""
	if strings.TrimSpace(req.Text) != "" {
		textKey = contentstore.Key([]byte(req.Text), "")
	}
	if textKey != "" && company.ProcessedTexts()[textKey] {
		s.log.Debug("direct text already folded", "company_id", company.ID, "text_key", textKey)
		textKey = ""
	}
	if textKey != "" {
		summary, err := s.summarize(dbc.Ctx, req.Text, company.Name, directTextCategory)
		if err != nil {
			textErr = fmt.Errorf("summarize direct text: %w", err)
		} else {
			textBlock = "=== This is information provided as direct text ===" + rawEvidenceSep + summary
		}
	}

	if len(blocks) == 0 && textBlock == "" {
		return company, textErr
	}

	var updated *types.Company
	err = dbc.Conn(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		locked, err := s.companyRepo.GetByIDForUpdate(inner, company.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("company %s: %w", company.ID, pkgerrors.ErrNotFound)
		}
		ids := locked.ProcessedFiles()
		seen := map[uuid.UUID]bool{}
		for _, id := range ids {
			seen[id] = true
		}
		buffer := locked.RawEvidence
		folded := []uuid.UUID{}
		for _, b := range blocks {
			if seen[b.fileID] {
				continue
			}
			buffer = appendBlock(buffer, b.text)
			ids = append(ids, b.fileID)
			seen[b.fileID] = true
			folded = append(folded, b.fileID)
		}
		texts := locked.ProcessedTexts()
		keys := decodeTextKeys(locked)
		foldedText := false
		if textBlock != "" && !texts[textKey] {
			buffer = appendBlock(buffer, textBlock)
			keys = append(keys, textKey)
			foldedText = true
		}
		if len(folded) == 0 && !foldedText {
			updated = locked
			res.FoldedFiles = folded
			return nil
		}
		if err := s.companyRepo.UpdateFields(inner, locked.ID, map[string]interface{}{
			"raw_evidence":        buffer,
			"processed_file_ids":  types.EncodeFileIDs(ids),
			"processed_text_keys": types.EncodeTextKeys(keys),
		}); err != nil {
			return err
		}
		locked.RawEvidence = buffer
		locked.ProcessedFileIDs = types.EncodeFileIDs(ids)
		locked.ProcessedTextKeys = types.EncodeTextKeys(keys)
		updated = locked
		res.FoldedFiles = folded
		res.FoldedText = foldedText
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fold company evidence: %w", err)
	}
	s.log.Info("company evidence folded",
		"company_id", company.ID,
		"files", len(res.FoldedFiles),
		"skipped", len(res.SkippedFiles),
		"direct_text", res.FoldedText,
	)
	return updated, textErr
}

// decodeTextKeys keeps the stored order of folded text keys.
func decodeTextKeys(c *types.Company) []string {
	var keys []string
	if len(c.ProcessedTextKeys) > 0 {
		_ = json.Unmarshal(c.ProcessedTextKeys, &keys)
	}
	return keys
}

func appendBlock(buffer, block string) string {
	if buffer == "" {
		return block
	}
	return buffer + rawEvidenceSep + block
}

func (s *companyProfileService) summarize(ctx context.Context, text, companyName, category string) (string, error) {
	start := time.Now()
	out, err := retry.Value(ctx, s.retry, func(ctx context.Context) (string, error) {
		return s.semantic.SummarizeForCompany(ctx, text, companyName, category)
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveLLM("summarize_for_company", status, time.Since(start))
	return strings.TrimSpace(out), err
}

func (s *companyProfileService) derive(dbc dbctx.Context, company *types.Company) error {
	if strings.TrimSpace(company.RawEvidence) == "" {
		return fmt.Errorf("company %s: %w", company.ID, pkgerrors.ErrEmptyEvidence)
	}
	start := time.Now()
	analysis, err := retry.Value(dbc.Ctx, s.retry, func(ctx context.Context) (types.CompanyAnalysis, error) {
		return s.semantic.AnalyzeCompany(ctx, company.RawEvidence)
	})
	if err != nil {
		s.metrics.ObserveLLM("analyze_company", "error", time.Since(start))
		return fmt.Errorf("analyze company: %w", err)
	}
	s.metrics.ObserveLLM("analyze_company", "ok", time.Since(start))

	analysis = analysis.Normalize()
	if err := s.companyRepo.UpdateFields(dbc, company.ID, map[string]interface{}{
		"description":           analysis.Description,
		"sector":                analysis.Sector,
		"size":                  analysis.Size,
		"business_type":         analysis.BusinessType,
		"technology_stack":      analysis.TechnologyStack,
		"areas_of_focus":        strings.Join(analysis.AreasOfFocus, ", "),
		"updated_from_evidence": true,
	}); err != nil {
		return fmt.Errorf("save company profile: %w", err)
	}
	s.log.Info("company profile derived", "company_id", company.ID, "areas", len(analysis.AreasOfFocus))
	return nil
}
