package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
)

const frameworkYAML = `
- section: Engineering
  criteria:
    - id: "1.1"
      parent: "1"
      title: Deployment frequency
      maturity_definitions:
        "1": Manual releases
        "2": Scheduled releases
        "3": Continuous delivery
    - id: "1"
      title: Delivery
      description: How software reaches users
    - id: "9"
      parent: "404"
      title: Orphan
- section: Product
  criteria:
    - id: "1"
      title: Discovery
`

func TestSeedFrameworkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	dbc := dbctx.Context{Ctx: ctx}

	sections, err := LoadFramework(strings.NewReader(frameworkYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := e.criteria.Seed(dbc, sections)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Created != 4 || res.Existing != 0 {
		t.Fatalf("unexpected first seed: %+v", res)
	}
	res, err = e.criteria.Seed(dbc, sections)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if res.Created != 0 || res.Existing != 4 {
		t.Fatalf("unexpected reseed: %+v", res)
	}

	parent, _ := e.criterionRepo.FindBaseByTitle(dbc, nil, "Delivery")
	if parent == nil {
		t.Fatalf("parent not seeded")
	}
	child, _ := e.criterionRepo.FindBaseByTitle(dbc, &parent.ID, "Deployment frequency")
	if child == nil || child.Section != "Engineering" || len(child.Levels()) != 3 {
		t.Fatalf("child not seeded under parent: %+v", child)
	}
	if orphan, _ := e.criterionRepo.FindBaseByTitle(dbc, nil, "Orphan"); orphan == nil {
		t.Fatalf("criterion with unknown parent should be seeded as root")
	}

	if _, err := LoadFramework(strings.NewReader("- section: X\n  criteria:\n    - id: a\n      bogus: 1\n")); err == nil {
		t.Fatalf("unknown fields should be rejected")
	}
}

func TestDeleteCustomCriterionRules(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	company := testutil.SeedCompany(t, ctx, e.db, "Acme")
	audit := testutil.SeedAudit(t, ctx, e.db, company.ID)
	dbc := dbctx.Context{Ctx: ctx}

	base := testutil.SeedCriterion(t, ctx, e.db, "Base", nil)
	if err := e.criteria.DeleteCustom(dbc, base.ID); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("base criteria cannot be deleted, got %v", err)
	}

	used := testutil.SeedCriterion(t, ctx, e.db, "Used", &audit.ID)
	if err := e.criterionRepo.Associate(dbc, audit.ID, used.ID); err != nil {
		t.Fatalf("associate: %v", err)
	}
	if err := e.criteria.DeleteCustom(dbc, used.ID); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("criteria in use cannot be deleted, got %v", err)
	}

	parent := testutil.SeedCriterion(t, ctx, e.db, "Parent", &audit.ID)
	child := testutil.SeedCriterion(t, ctx, e.db, "Child", &audit.ID)
	if err := e.db.Model(&types.Criterion{}).Where("id = ?", child.ID).Update("parent_id", parent.ID).Error; err != nil {
		t.Fatalf("link child: %v", err)
	}
	if err := e.criteria.DeleteCustom(dbc, parent.ID); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("criteria with children cannot be deleted, got %v", err)
	}

	if err := e.criteria.DeleteCustom(dbc, child.ID); err != nil {
		t.Fatalf("delete custom: %v", err)
	}
	if got, _ := e.criterionRepo.GetByID(dbc, child.ID); got != nil {
		t.Fatalf("criterion should be gone")
	}
}
