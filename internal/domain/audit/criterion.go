package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Criterion is a node of the audit framework. ScopedToAuditID is nil for
// reusable base criteria and set for criteria custom to one audit.
type Criterion struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ParentID *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`

	Title               string         `gorm:"column:title;not null" json:"title"`
	Description         string         `gorm:"column:description;type:text" json:"description"`
	MaturityDefinitions datatypes.JSON `gorm:"column:maturity_definitions;type:jsonb" json:"maturity_definitions"`
	Section             string         `gorm:"column:section;index" json:"section,omitempty"`
	ScopedToAuditID     *uuid.UUID     `gorm:"type:uuid;column:scoped_to_audit_id;index" json:"scoped_to_audit_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Criterion) TableName() string { return "criterion" }

func (c *Criterion) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (c *Criterion) IsBase() bool { return c.ScopedToAuditID == nil }

type MaturityLevel struct {
	Level      string
	Definition string
}

// Levels returns the maturity definitions ordered by level key.
func (c *Criterion) Levels() []MaturityLevel {
	if c == nil || len(c.MaturityDefinitions) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(c.MaturityDefinitions, &m); err != nil {
		return nil
	}
	out := make([]MaturityLevel, 0, len(m))
	for k, v := range m {
		out = append(out, MaturityLevel{Level: k, Definition: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// FormatLevels renders "level: definition" lines.
func (c *Criterion) FormatLevels() string {
	var b strings.Builder
	for i, l := range c.Levels() {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", l.Level, l.Definition)
	}
	return b.String()
}

func EncodeMaturity(levels map[string]string) datatypes.JSON {
	if levels == nil {
		levels = map[string]string{}
	}
	b, _ := json.Marshal(levels)
	return datatypes.JSON(b)
}

// AuditCriterion selects a criterion for an audit.
type AuditCriterion struct {
	AuditID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"audit_id"`
	CriterionID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"criterion_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (AuditCriterion) TableName() string { return "audit_criterion" }
