package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FileStatusPending    = "pending"
	FileStatusProcessing = "processing"
	FileStatusComplete   = "complete"
	FileStatusFailed     = "failed"
)

// EvidenceFile is one logical upload into an audit. Several rows may share a
// ContentPath when identical bytes were uploaded to different audits.
// TextContent is set iff Status is complete.
type EvidenceFile struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuditID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_evidence_file_audit_content,priority:1" json:"audit_id"`
	Audit   *Audit    `gorm:"constraint:OnDelete:CASCADE;foreignKey:AuditID;references:ID" json:"-"`

	Filename    string `gorm:"column:filename;not null" json:"filename"`
	MediaType   string `gorm:"column:media_type" json:"media_type"`
	Category    string `gorm:"column:category;not null;index" json:"category"`
	Status      string `gorm:"column:status;not null;index" json:"status"`
	ContentPath string `gorm:"column:content_path;not null;index;uniqueIndex:idx_evidence_file_audit_content,priority:2" json:"content_path"`

	TextContent *string    `gorm:"column:text_content;type:text" json:"text_content,omitempty"`
	Error       string     `gorm:"column:error" json:"error,omitempty"`
	UploadedAt  time.Time  `gorm:"column:uploaded_at;not null;index" json:"uploaded_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`

	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (EvidenceFile) TableName() string { return "evidence_file" }

func (f *EvidenceFile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	return nil
}

// HasText reports whether the file carries usable extracted text.
func (f *EvidenceFile) HasText() bool {
	return f != nil && f.Status == FileStatusComplete && f.TextContent != nil && *f.TextContent != ""
}
