package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
)

func TestParseBufferOnlyGrows(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	company := testutil.SeedCompany(t, ctx, e.db, "Acme")
	audit := testutil.SeedAudit(t, ctx, e.db, company.ID)
	a := testutil.SeedCompleteFile(t, ctx, e.db, audit.ID, "a.txt", "alpha text")
	b := testutil.SeedCompleteFile(t, ctx, e.db, audit.ID, "b.txt", "beta text")
	dbc := dbctx.Context{Ctx: ctx}

	res, err := e.profiles.Parse(dbc, ParseRequest{CompanyID: company.ID})
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	if len(res.FoldedFiles) != 2 || !res.Derived {
		t.Fatalf("unexpected first result: %+v", res)
	}
	after1 := reloadCompany(t, e, company)
	if !strings.Contains(after1.RawEvidence, "=== This is information gathered from the file a.txt ===\n\nsummary of alpha text") {
		t.Fatalf("missing a.txt block:\n%s", after1.RawEvidence)
	}
	if !strings.Contains(after1.RawEvidence, "=== This is information gathered from the file b.txt ===") {
		t.Fatalf("missing b.txt block:\n%s", after1.RawEvidence)
	}
	if n := len(after1.ProcessedFiles()); n != 2 {
		t.Fatalf("expected 2 processed ids, got %d", n)
	}
	if !after1.UpdatedFromEvidence || after1.Size != "Small" || after1.BusinessType != "B2B" {
		t.Fatalf("profile not derived: %+v", after1)
	}

	calls := len(e.sem.summarizeCalls)
	res, err = e.profiles.Parse(dbc, ParseRequest{CompanyID: company.ID})
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if len(res.FoldedFiles) != 0 || res.Derived {
		t.Fatalf("nothing new should be folded or derived: %+v", res)
	}
	if len(e.sem.summarizeCalls) != calls {
		t.Fatalf("folded files must not be summarized again")
	}
	if reloadCompany(t, e, company).RawEvidence != after1.RawEvidence {
		t.Fatalf("buffer changed without new input")
	}

	c := testutil.SeedCompleteFile(t, ctx, e.db, audit.ID, "c.txt", "gamma text")
	res, err = e.profiles.Parse(dbc, ParseRequest{CompanyID: company.ID, Text: "direct notes"})
	if err != nil {
		t.Fatalf("third parse: %v", err)
	}
	if len(res.FoldedFiles) != 1 || res.FoldedFiles[0] != c.ID || !res.FoldedText {
		t.Fatalf("unexpected third result: %+v", res)
	}
	after3 := reloadCompany(t, e, company)
	if !strings.HasPrefix(after3.RawEvidence, after1.RawEvidence+"\n\n") {
		t.Fatalf("buffer must extend the previous one")
	}
	if !strings.HasSuffix(after3.RawEvidence, "=== This is information provided as direct text ===\n\nsummary of direct notes") {
		t.Fatalf("direct text block should come last:\n%s", after3.RawEvidence)
	}
	seen := map[string]bool{}
	for _, id := range after3.ProcessedFiles() {
		seen[id.String()] = true
	}
	if len(seen) != 3 || !seen[a.ID.String()] || !seen[b.ID.String()] || !seen[c.ID.String()] {
		t.Fatalf("unexpected processed ids: %v", seen)
	}
}

func TestParseRetriesFilesWhoseSummaryFailed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	company := testutil.SeedCompany(t, ctx, e.db, "Acme")
	audit := testutil.SeedAudit(t, ctx, e.db, company.ID)
	testutil.SeedCompleteFile(t, ctx, e.db, audit.ID, "ok.txt", "good text")
	bad := testutil.SeedCompleteFile(t, ctx, e.db, audit.ID, "bad.txt", "flaky text")
	dbc := dbctx.Context{Ctx: ctx}

	e.sem.summarize = func(text, category string) (string, error) {
		if text == "flaky text" {
			return "", errBackend
		}
		return "summary of " + text, nil
	}
	res, err := e.profiles.Parse(dbc, ParseRequest{CompanyID: company.ID})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.FoldedFiles) != 1 || len(res.SkippedFiles) != 1 || res.SkippedFiles[0] != bad.ID {
		t.Fatalf("unexpected result: %+v", res)
	}

	e.sem.summarize = nil
	res, err = e.profiles.Parse(dbc, ParseRequest{CompanyID: company.ID})
	if err != nil {
		t.Fatalf("retry parse: %v", err)
	}
	if len(res.FoldedFiles) != 1 || res.FoldedFiles[0] != bad.ID {
		t.Fatalf("skipped file should be folded on retry: %+v", res)
	}
	if n := len(reloadCompany(t, e, company).ProcessedFiles()); n != 2 {
		t.Fatalf("expected 2 processed ids, got %d", n)
	}
}

func TestParseRetryAfterDeriveFailureFoldsTextOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	company := testutil.SeedCompany(t, ctx, e.db, "Acme")
	dbc := dbctx.Context{Ctx: ctx}

	failures := 1
	e.sem.analyze = func(raw string) (types.CompanyAnalysis, error) {
		if failures > 0 {
			failures--
			return types.CompanyAnalysis{}, errBackend
		}
		return types.CompanyAnalysis{Description: "A company", Size: "Small", BusinessType: "B2B"}, nil
	}
	req := ParseRequest{CompanyID: company.ID, Text: "board minutes"}
	for attempt := 1; attempt <= 3; attempt++ {
		res, err := e.profiles.Parse(dbc, req)
		if attempt == 1 {
			if err == nil {
				t.Fatalf("first attempt should fail on analysis")
			}
			continue
		}
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if res.FoldedText {
			t.Fatalf("attempt %d folded the direct text again", attempt)
		}
	}

	got := reloadCompany(t, e, company)
	if n := strings.Count(got.RawEvidence, "=== This is information provided as direct text ==="); n != 1 {
		t.Fatalf("expected one direct text block, got %d:\n%s", n, got.RawEvidence)
	}
	if !got.UpdatedFromEvidence || got.Size != "Small" {
		t.Fatalf("profile should be derived on retry: %+v", got)
	}
	summarized := 0
	for _, text := range e.sem.summarizeCalls {
		if text == "board minutes" {
			summarized++
		}
	}
	if summarized != 1 {
		t.Fatalf("direct text summarized %d times", summarized)
	}

	res, err := e.profiles.Parse(dbc, ParseRequest{CompanyID: company.ID, Text: "new minutes"})
	if err != nil {
		t.Fatalf("new text: %v", err)
	}
	if !res.FoldedText {
		t.Fatalf("different text should still be folded")
	}
}

func TestParseNormalizesAnalysis(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	company := testutil.SeedCompany(t, ctx, e.db, "Acme")
	audit := testutil.SeedAudit(t, ctx, e.db, company.ID)
	testutil.SeedCompleteFile(t, ctx, e.db, audit.ID, "a.txt", "alpha")
	dbc := dbctx.Context{Ctx: ctx}

	e.sem.analyze = func(raw string) (types.CompanyAnalysis, error) {
		areas := make([]string, 0, 14)
		for i := 0; i < 14; i++ {
			areas = append(areas, fmt.Sprintf("Area %d", i))
		}
		return types.CompanyAnalysis{Description: "d", Size: "Gigantic", BusinessType: "b2c", AreasOfFocus: areas}, nil
	}
	if _, err := e.profiles.Parse(dbc, ParseRequest{CompanyID: company.ID}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := reloadCompany(t, e, company)
	if n := len(got.AreasList()); n != types.MaxAreasOfFocus {
		t.Fatalf("areas should be capped at %d, got %d", types.MaxAreasOfFocus, n)
	}
	if got.Size != "" || got.BusinessType != "B2C" {
		t.Fatalf("enum fields not normalized: size=%q type=%q", got.Size, got.BusinessType)
	}
}

func TestParseRejectsEmptyBuffer(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	company := testutil.SeedCompany(t, ctx, e.db, "Acme")
	dbc := dbctx.Context{Ctx: ctx}

	_, err := e.profiles.Parse(dbc, ParseRequest{CompanyID: company.ID, ReprocessOnly: true})
	if !errors.Is(err, pkgerrors.ErrEmptyEvidence) {
		t.Fatalf("expected ErrEmptyEvidence, got %v", err)
	}
	if len(e.sem.analyzeInputs) != 0 {
		t.Fatalf("backend must not see an empty buffer")
	}
}

func reloadCompany(t *testing.T, e *env, c *types.Company) *types.Company {
	t.Helper()
	got, err := e.companyRepo.GetByID(dbctx.Context{Ctx: context.Background()}, c.ID)
	if err != nil || got == nil {
		t.Fatalf("reload company: %v", err)
	}
	return got
}
