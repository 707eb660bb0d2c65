package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
)

func SeedCompany(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Company {
	tb.Helper()
	c := &types.Company{ID: uuid.New(), Name: name}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed company: %v", err)
	}
	return c
}

func SeedAudit(tb testing.TB, ctx context.Context, tx *gorm.DB, companyID uuid.UUID) *types.Audit {
	tb.Helper()
	a := &types.Audit{ID: uuid.New(), CompanyID: companyID, Name: "audit"}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed audit: %v", err)
	}
	return a
}

func SeedCriterion(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, scopedTo *uuid.UUID) *types.Criterion {
	tb.Helper()
	c := &types.Criterion{
		ID:          uuid.New(),
		Title:       title,
		Description: title + " description",
		MaturityDefinitions: types.EncodeMaturity(map[string]string{
			"1": "Ad hoc",
			"2": "Defined",
			"3": "Optimised",
		}),
		Section:         "Engineering",
		ScopedToAuditID: scopedTo,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed criterion: %v", err)
	}
	return c
}

// SeedCompleteFile inserts a processed file whose content key is derived from text.
func SeedCompleteFile(tb testing.TB, ctx context.Context, tx *gorm.DB, auditID uuid.UUID, filename, text string) *types.EvidenceFile {
	tb.Helper()
	sum := sha256.Sum256([]byte(text))
	now := time.Now().UTC()
	f := &types.EvidenceFile{
		ID:          uuid.New(),
		AuditID:     auditID,
		Filename:    filename,
		MediaType:   "text/plain",
		Category:    "document",
		Status:      types.FileStatusComplete,
		ContentPath: hex.EncodeToString(sum[:]) + ".txt",
		TextContent: &text,
		ProcessedAt: &now,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed evidence file: %v", err)
	}
	return f
}

func SeedPendingFile(tb testing.TB, ctx context.Context, tx *gorm.DB, auditID uuid.UUID, filename, contentPath string) *types.EvidenceFile {
	tb.Helper()
	f := &types.EvidenceFile{
		ID:          uuid.New(),
		AuditID:     auditID,
		Filename:    filename,
		Category:    "document",
		Status:      types.FileStatusPending,
		ContentPath: contentPath,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed pending file: %v", err)
	}
	return f
}
