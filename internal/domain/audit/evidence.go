package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EvidenceTypeQuote   = "quote"
	EvidenceTypeSummary = "summary"

	SourceEvidenceFile = "evidence_file"
	SourceDirectText   = "direct_text"
)

// Evidence is never updated after insert. Re-extraction is gated on
// (AuditID, CriterionID, Source, SourceID).
type Evidence struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuditID     uuid.UUID `gorm:"type:uuid;not null;index:idx_evidence_source,priority:1" json:"audit_id"`
	CriterionID uuid.UUID `gorm:"type:uuid;not null;index:idx_evidence_source,priority:2" json:"criterion_id"`

	Content       string `gorm:"column:content;type:text;not null" json:"content"`
	EvidenceType  string `gorm:"column:evidence_type;not null" json:"evidence_type"`
	Source        string `gorm:"column:source;not null;index:idx_evidence_source,priority:3" json:"source"`
	SourceID      string `gorm:"column:source_id;not null;index:idx_evidence_source,priority:4" json:"source_id"`
	StartPosition *int   `gorm:"column:start_position" json:"start_position,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Evidence) TableName() string { return "evidence" }

func (e *Evidence) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

type Question struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuditID     uuid.UUID `gorm:"type:uuid;not null;index:idx_question_scope,priority:1" json:"audit_id"`
	CriterionID uuid.UUID `gorm:"type:uuid;not null;index:idx_question_scope,priority:2" json:"criterion_id"`
	Text        string    `gorm:"column:text;type:text;not null" json:"text"`
	Answers     []Answer  `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}

func (Question) TableName() string { return "question" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

type Answer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Text       string    `gorm:"column:text;type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Answer) TableName() string { return "answer" }

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
