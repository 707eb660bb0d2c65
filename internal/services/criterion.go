package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/audits"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

// FrameworkSection is one section of the criteria seed file. Criterion ids
// are local to the file and only used to resolve parents within a section.
type FrameworkSection struct {
	Section  string               `yaml:"section"`
	Criteria []FrameworkCriterion `yaml:"criteria"`
}

type FrameworkCriterion struct {
	ID                  string            `yaml:"id"`
	Parent              string            `yaml:"parent"`
	Title               string            `yaml:"title"`
	Description         string            `yaml:"description"`
	MaturityDefinitions map[string]string `yaml:"maturity_definitions"`
}

type SeedResult struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

type CriterionService interface {
	// DeleteCustom removes an audit-specific criterion that nothing references.
	DeleteCustom(dbc dbctx.Context, criterionID uuid.UUID) error
	// Seed inserts base criteria, reusing rows that already exist with the
	// same title under the same parent.
	Seed(dbc dbctx.Context, sections []FrameworkSection) (SeedResult, error)
}

type criterionService struct {
	db            *gorm.DB
	log           *logger.Logger
	criterionRepo audits.CriterionRepo
}

func NewCriterionService(db *gorm.DB, baseLog *logger.Logger, criterionRepo audits.CriterionRepo) CriterionService {
	return &criterionService{
		db:            db,
		log:           baseLog.With("service", "CriterionService"),
		criterionRepo: criterionRepo,
	}
}

func LoadFramework(r io.Reader) ([]FrameworkSection, error) {
	var out []FrameworkSection
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode criteria framework: %w", err)
	}
	for i, sec := range out {
		if strings.TrimSpace(sec.Section) == "" {
			return nil, fmt.Errorf("section %d has no name: %w", i, pkgerrors.ErrInvalidArgument)
		}
		for j, c := range sec.Criteria {
			if strings.TrimSpace(c.Title) == "" {
				return nil, fmt.Errorf("section %q criterion %d has no title: %w", sec.Section, j, pkgerrors.ErrInvalidArgument)
			}
		}
	}
	return out, nil
}

func (s *criterionService) DeleteCustom(dbc dbctx.Context, criterionID uuid.UUID) error {
	return dbc.Conn(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		c, err := s.criterionRepo.GetByID(inner, criterionID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("criterion %s: %w", criterionID, pkgerrors.ErrNotFound)
		}
		if c.IsBase() {
			return fmt.Errorf("cannot delete base criteria: %w", pkgerrors.ErrInvalidArgument)
		}
		inUse, err := s.criterionRepo.CountAssociations(inner, criterionID)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return fmt.Errorf("criterion is still in use by %d audit(s): %w", inUse, pkgerrors.ErrConflict)
		}
		children, err := s.criterionRepo.CountChildren(inner, criterionID)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("criterion has %d child criteria: %w", children, pkgerrors.ErrConflict)
		}
		if err := s.criterionRepo.Delete(inner, criterionID); err != nil {
			return err
		}
		s.log.Info("custom criterion deleted", "criterion_id", criterionID)
		return nil
	})
}

func (s *criterionService) Seed(dbc dbctx.Context, sections []FrameworkSection) (SeedResult, error) {
	var res SeedResult
	err := dbc.Conn(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		for _, sec := range sections {
			created, existing, err := s.seedSection(inner, sec)
			if err != nil {
				return fmt.Errorf("seed section %q: %w", sec.Section, err)
			}
			res.Created += created
			res.Existing += existing
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	s.log.Info("criteria framework seeded", "created", res.Created, "existing", res.Existing)
	return res, nil
}

// seedSection inserts parents before children. Criteria whose parent id is
// not in the section are seeded as roots.
func (s *criterionService) seedSection(dbc dbctx.Context, sec FrameworkSection) (int, int, error) {
	known := map[string]bool{}
	for _, c := range sec.Criteria {
		if c.ID != "" {
			known[c.ID] = true
		}
	}
	resolved := map[string]uuid.UUID{}
	pending := append([]FrameworkCriterion(nil), sec.Criteria...)
	created, existing := 0, 0

	for len(pending) > 0 {
		next := pending[:0:0]
		for _, c := range pending {
			var parentID *uuid.UUID
			if p := strings.TrimSpace(c.Parent); p != "" {
				if !known[p] {
					s.log.Warn("parent not found in section; seeding as root", "section", sec.Section, "parent", p, "title", c.Title)
				} else if id, ok := resolved[p]; ok {
					parentID = &id
				} else {
					next = append(next, c)
					continue
				}
			}
			id, isNew, err := s.ensureBase(dbc, sec.Section, parentID, c)
			if err != nil {
				return 0, 0, err
			}
			if c.ID != "" {
				resolved[c.ID] = id
			}
			if isNew {
				created++
			} else {
				existing++
			}
		}
		if len(next) == len(pending) {
			return 0, 0, fmt.Errorf("parent cycle among %d criteria: %w", len(next), pkgerrors.ErrInvalidArgument)
		}
		pending = next
	}
	return created, existing, nil
}

func (s *criterionService) ensureBase(dbc dbctx.Context, section string, parentID *uuid.UUID, c FrameworkCriterion) (uuid.UUID, bool, error) {
	title := strings.TrimSpace(c.Title)
	found, err := s.criterionRepo.FindBaseByTitle(dbc, parentID, title)
	if err != nil {
		return uuid.Nil, false, err
	}
	if found != nil {
		return found.ID, false, nil
	}
	now := time.Now().UTC()
	row := &types.Criterion{
		ID:                  uuid.New(),
		ParentID:            parentID,
		Title:               title,
		Description:         strings.TrimSpace(c.Description),
		MaturityDefinitions: types.EncodeMaturity(c.MaturityDefinitions),
		Section:             section,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.criterionRepo.Create(dbc, row); err != nil {
		return uuid.Nil, false, err
	}
	return row.ID, true, nil
}
