package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/audits"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/contentstore"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

// TextExtractor is the part of extractor.Extractor file processing needs.
type TextExtractor interface {
	Extract(ctx context.Context, path string, cat extractor.Category) (string, error)
}

type UploadInput struct {
	AuditID   uuid.UUID
	Filename  string
	MediaType string
	Data      []byte
}

// Outcomes of processing one file.
const (
	ProcessSkipped   = "skipped"
	ProcessCompleted = "complete"
	ProcessFailed    = "failed"
)

type ProcessReport struct {
	FileID  uuid.UUID `json:"file_id"`
	Outcome string    `json:"outcome"`
	Chars   int       `json:"chars,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type EvidenceFileService interface {
	Upload(dbc dbctx.Context, in UploadInput) (*types.EvidenceFile, error)
	Get(dbc dbctx.Context, auditID, fileID uuid.UUID) (*types.EvidenceFile, error)
	// Process claims a pending file and extracts its text. Extraction failures
	// are recorded on the file, not returned.
	Process(dbc dbctx.Context, fileID uuid.UUID) (ProcessReport, error)
	// Unclaim returns a file left in processing by an interrupted run to
	// pending, once it has sat untouched for staleAfter. Files in any other
	// state, or still being worked on, are left alone.
	Unclaim(dbc dbctx.Context, fileID uuid.UUID, staleAfter time.Duration) (bool, error)
}

type evidenceFileService struct {
	db          *gorm.DB
	log         *logger.Logger
	store       contentstore.Store
	extractor   TextExtractor
	coordinator PipelineCoordinator
	auditRepo   audits.AuditRepo
	fileRepo    audits.EvidenceFileRepo
	metrics     *observability.Metrics
}

func NewEvidenceFileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store contentstore.Store,
	textExtractor TextExtractor,
	coordinator PipelineCoordinator,
	auditRepo audits.AuditRepo,
	fileRepo audits.EvidenceFileRepo,
	metrics *observability.Metrics,
) EvidenceFileService {
	return &evidenceFileService{
		db:          db,
		log:         baseLog.With("service", "EvidenceFileService"),
		store:       store,
		extractor:   textExtractor,
		coordinator: coordinator,
		auditRepo:   auditRepo,
		fileRepo:    fileRepo,
		metrics:     metrics,
	}
}

func (s *evidenceFileService) Upload(dbc dbctx.Context, in UploadInput) (*types.EvidenceFile, error) {
	filename := strings.TrimSpace(filepath.Base(in.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("filename required: %w", pkgerrors.ErrInvalidArgument)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("empty file: %w", pkgerrors.ErrInvalidArgument)
	}
	audit, err := s.auditRepo.GetByID(dbc, in.AuditID)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, fmt.Errorf("audit %s: %w", in.AuditID, pkgerrors.ErrNotFound)
	}

	category := extractor.ClassifyFile(filename, in.MediaType)
	key, err := s.store.Put(dbc.Ctx, in.Data, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if existing, err := s.fileRepo.GetByAuditAndContent(dbc, in.AuditID, key); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%s matches %s: %w", filename, existing.Filename, pkgerrors.ErrAlreadyAssociated)
	}

	file := &types.EvidenceFile{
		ID:          uuid.New(),
		AuditID:     in.AuditID,
		Filename:    filename,
		MediaType:   strings.TrimSpace(in.MediaType),
		Category:    string(category),
		Status:      types.FileStatusPending,
		ContentPath: key,
		UploadedAt:  time.Now().UTC(),
	}
	donor, err := s.fileRepo.FindCompleteByContent(dbc, key)
	if err != nil {
		return nil, err
	}
	if donor != nil && donor.TextContent != nil {
		text := *donor.TextContent
		file.Status = types.FileStatusComplete
		file.TextContent = &text
		file.ProcessedAt = donor.ProcessedAt
	}

	if err := s.fileRepo.Create(dbc, file); err != nil {
		// A concurrent upload of the same bytes may have won the unique index.
		if existing, lookupErr := s.fileRepo.GetByAuditAndContent(dbctx.Context{Ctx: dbc.Ctx}, in.AuditID, key); lookupErr == nil && existing != nil {
			return nil, fmt.Errorf("%s: %w", filename, pkgerrors.ErrAlreadyAssociated)
		}
		return nil, fmt.Errorf("create evidence file: %w", err)
	}

	if file.Status == types.FileStatusComplete {
		s.log.Info("evidence file reused processed content", "file_id", file.ID, "donor_file_id", donor.ID)
		return file, nil
	}
	if _, err := s.coordinator.OnFileUploaded(dbctx.Context{Ctx: dbc.Ctx}, file); err != nil {
		// The file stays pending; Reprocess picks it up again.
		s.log.Error("failed to schedule file processing", "file_id", file.ID, "error", err)
	}
	s.log.Info("evidence file uploaded", "file_id", file.ID, "audit_id", file.AuditID, "category", file.Category)
	return file, nil
}

func (s *evidenceFileService) Get(dbc dbctx.Context, auditID, fileID uuid.UUID) (*types.EvidenceFile, error) {
	file, err := s.fileRepo.GetByID(dbc, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil || file.AuditID != auditID {
		return nil, fmt.Errorf("evidence file %s: %w", fileID, pkgerrors.ErrNotFound)
	}
	return file, nil
}

func (s *evidenceFileService) Process(dbc dbctx.Context, fileID uuid.UUID) (ProcessReport, error) {
	dbc.Ctx = ctxutil.Default(dbc.Ctx)
	report := ProcessReport{FileID: fileID}
	claimed, err := s.fileRepo.Transition(dbc, fileID, []string{types.FileStatusPending}, map[string]interface{}{
		"status": types.FileStatusProcessing,
	})
	if err != nil {
		return report, err
	}
	if !claimed {
		report.Outcome = ProcessSkipped
		return report, nil
	}
	file, err := s.fileRepo.GetByID(dbc, fileID)
	if err != nil {
		return report, s.release(dbc.Ctx, fileID, err)
	}
	if file == nil {
		return report, fmt.Errorf("evidence file %s: %w", fileID, pkgerrors.ErrNotFound)
	}

	start := time.Now()
	text, extractErr := s.extractText(dbc.Ctx, file)
	if extractErr != nil && dbc.Ctx.Err() != nil {
		// Shutdown, not a bad file: hand it back for the retried job.
		return report, s.release(dbc.Ctx, fileID, extractErr)
	}

	now := time.Now().UTC()
	log := s.log.With("file_id", fileID, "category", file.Category)
	if extractErr != nil {
		s.metrics.ObserveTextExtraction(file.Category, "error", time.Since(start))
		log.Warn("text extraction failed", "error", extractErr)
		if _, err := s.fileRepo.MarkFailed(dbc, fileID, extractErr.Error(), now); err != nil {
			return report, err
		}
		report.Outcome = ProcessFailed
		report.Error = extractErr.Error()
		return report, nil
	}

	s.metrics.ObserveTextExtraction(file.Category, "ok", time.Since(start))
	if _, err := s.fileRepo.MarkComplete(dbc, fileID, text, now); err != nil {
		return report, err
	}
	log.Info("text extracted", "chars", len(text), "took", time.Since(start).String())
	report.Outcome = ProcessCompleted
	report.Chars = len(text)
	return report, nil
}

func (s *evidenceFileService) extractText(ctx context.Context, file *types.EvidenceFile) (string, error) {
	path, cleanup, err := s.store.Materialize(ctx, file.ContentPath)
	if err != nil {
		return "", fmt.Errorf("materialize content: %w", err)
	}
	defer cleanup()
	return s.extractor.Extract(ctx, path, extractor.Category(file.Category))
}

func (s *evidenceFileService) Unclaim(dbc dbctx.Context, fileID uuid.UUID, staleAfter time.Duration) (bool, error) {
	ok, err := s.fileRepo.ReleaseStale(dbc, fileID, time.Now().UTC().Add(-staleAfter))
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Warn("reclaimed file left in processing", "file_id", fileID, "stale_after", staleAfter.String())
	}
	return ok, nil
}

// release puts a claimed file back to pending.
func (s *evidenceFileService) release(parent context.Context, fileID uuid.UUID, cause error) error {
	ctx, cancel := context.WithTimeout(ctxutil.Detached(parent), 5*time.Second)
	defer cancel()
	_, err := s.fileRepo.Transition(dbctx.Context{Ctx: ctx}, fileID, []string{types.FileStatusProcessing}, map[string]interface{}{
		"status": types.FileStatusPending,
	})
	return errors.Join(cause, err)
}
