package audit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Company struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`

	Description     string `gorm:"column:description" json:"description,omitempty"`
	Sector          string `gorm:"column:sector" json:"sector,omitempty"`
	Size            string `gorm:"column:size" json:"size,omitempty"`
	BusinessType    string `gorm:"column:business_type" json:"business_type,omitempty"`
	TechnologyStack string `gorm:"column:technology_stack" json:"technology_stack,omitempty"`
	AreasOfFocus    string `gorm:"column:areas_of_focus" json:"areas_of_focus,omitempty"`

	// RawEvidence only ever grows. ProcessedFileIDs and ProcessedTextKeys
	// (content keys of folded direct text) guard against folding twice.
	RawEvidence         string         `gorm:"column:raw_evidence;type:text" json:"-"`
	ProcessedFileIDs    datatypes.JSON `gorm:"column:processed_file_ids;type:jsonb" json:"processed_file_ids"`
	ProcessedTextKeys   datatypes.JSON `gorm:"column:processed_text_keys;type:jsonb" json:"-"`
	UpdatedFromEvidence bool           `gorm:"column:updated_from_evidence;not null;default:false" json:"updated_from_evidence"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Company) TableName() string { return "company" }

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ProcessedFiles decodes ProcessedFileIDs; malformed or empty JSON yields an empty set.
func (c *Company) ProcessedFiles() []uuid.UUID {
	if c == nil || len(c.ProcessedFileIDs) == 0 {
		return []uuid.UUID{}
	}
	var raw []string
	if err := json.Unmarshal(c.ProcessedFileIDs, &raw); err != nil {
		return []uuid.UUID{}
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(strings.TrimSpace(s)); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// ProcessedTexts decodes ProcessedTextKeys into a set.
func (c *Company) ProcessedTexts() map[string]bool {
	out := map[string]bool{}
	if c == nil || len(c.ProcessedTextKeys) == 0 {
		return out
	}
	var raw []string
	if err := json.Unmarshal(c.ProcessedTextKeys, &raw); err != nil {
		return out
	}
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = true
		}
	}
	return out
}

// EncodeTextKeys stores keys in the order given.
func EncodeTextKeys(keys []string) datatypes.JSON {
	if keys == nil {
		keys = []string{}
	}
	b, _ := json.Marshal(keys)
	return datatypes.JSON(b)
}

// EncodeFileIDs is the inverse of ProcessedFiles.
func EncodeFileIDs(ids []uuid.UUID) datatypes.JSON {
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	b, _ := json.Marshal(raw)
	return datatypes.JSON(b)
}

// AreasList splits the stored comma-joined areas of focus.
func (c *Company) AreasList() []string {
	if c == nil || strings.TrimSpace(c.AreasOfFocus) == "" {
		return nil
	}
	parts := strings.Split(c.AreasOfFocus, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Audit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   *Company  `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID" json:"company,omitempty"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Audit) TableName() string { return "audit" }

func (a *Audit) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
