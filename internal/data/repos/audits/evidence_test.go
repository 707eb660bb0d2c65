package audits

import (
	"context"
	"testing"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
)

func TestEvidenceRepoSourceGuards(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	log := testutil.Logger(t)
	repo := NewEvidenceRepo(db, log)

	company := testutil.SeedCompany(t, ctx, db, "Acme")
	a := testutil.SeedAudit(t, ctx, db, company.ID)
	crit := testutil.SeedCriterion(t, ctx, db, "Deployment Practices", nil)
	f := testutil.SeedCompleteFile(t, ctx, db, a.ID, "notes.txt", "we ship")

	exists, err := repo.ExistsForSource(dbc, a.ID, crit.ID, types.SourceEvidenceFile, f.ID.String())
	if err != nil || exists {
		t.Fatalf("ExistsForSource before insert: exists=%v err=%v", exists, err)
	}

	pos := 3
	rows := []*types.Evidence{
		{AuditID: a.ID, CriterionID: crit.ID, Content: "summary", EvidenceType: types.EvidenceTypeSummary, Source: types.SourceEvidenceFile, SourceID: f.ID.String()},
		{AuditID: a.ID, CriterionID: crit.ID, Content: "ship", EvidenceType: types.EvidenceTypeQuote, Source: types.SourceEvidenceFile, SourceID: f.ID.String(), StartPosition: &pos},
	}
	if err := repo.CreateBatch(dbc, rows); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	exists, err = repo.ExistsForSource(dbc, a.ID, crit.ID, types.SourceEvidenceFile, f.ID.String())
	if err != nil || !exists {
		t.Fatalf("ExistsForSource after insert: exists=%v err=%v", exists, err)
	}
	ids, err := repo.SourceIDs(dbc, a.ID, crit.ID, types.SourceEvidenceFile)
	if err != nil || len(ids) != 1 {
		t.Fatalf("SourceIDs: %v err=%v", ids, err)
	}
	if _, ok := ids[f.ID.String()]; !ok {
		t.Fatalf("SourceIDs missing file id")
	}
	list, err := repo.ListByCriterion(dbc, a.ID, crit.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByCriterion: len=%d err=%v", len(list), err)
	}
}

func TestCriterionRepoCounts(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewCriterionRepo(db, testutil.Logger(t))

	company := testutil.SeedCompany(t, ctx, db, "Acme")
	a := testutil.SeedAudit(t, ctx, db, company.ID)
	parent := testutil.SeedCriterion(t, ctx, db, "Engineering", nil)
	child := testutil.SeedCriterion(t, ctx, db, "CI/CD", nil)
	child.ParentID = &parent.ID
	if err := db.Save(child).Error; err != nil {
		t.Fatalf("save child: %v", err)
	}

	if n, err := repo.CountChildren(dbc, parent.ID); err != nil || n != 1 {
		t.Fatalf("CountChildren: n=%d err=%v", n, err)
	}
	if err := repo.Associate(dbc, a.ID, parent.ID); err != nil {
		t.Fatalf("Associate: %v", err)
	}
	if err := repo.Associate(dbc, a.ID, parent.ID); err != nil {
		t.Fatalf("Associate twice should be idempotent: %v", err)
	}
	if n, err := repo.CountAssociations(dbc, parent.ID); err != nil || n != 1 {
		t.Fatalf("CountAssociations: n=%d err=%v", n, err)
	}
	found, err := repo.FindBaseByTitle(dbc, &parent.ID, "CI/CD")
	if err != nil || found == nil || found.ID != child.ID {
		t.Fatalf("FindBaseByTitle: %v err=%v", found, err)
	}
}
