package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
)

func TestNewContextCarriesAuditScope(t *testing.T) {
	auditID := uuid.New()
	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: "evidence_extract",
		Payload: datatypes.JSON(`{"audit_id":"` + auditID.String() + `","trace_id":"t-1"}`),
	}
	jc := NewContext(context.Background(), nil, job, nil)
	td := ctxutil.GetTraceData(jc.Ctx)
	if td == nil {
		t.Fatalf("expected trace data on job context")
	}
	if td.AuditID != auditID.String() || td.TraceID != "t-1" {
		t.Fatalf("unexpected trace data: %+v", td)
	}
	if td.CompanyID != "" {
		t.Fatalf("company id should be empty, got %q", td.CompanyID)
	}
}

func TestNewContextWithoutScope(t *testing.T) {
	job := &types.JobRun{ID: uuid.New(), JobType: "file_process", Payload: datatypes.JSON(`{"file_id":"x"}`)}
	jc := NewContext(context.Background(), nil, job, nil)
	if td := ctxutil.GetTraceData(jc.Ctx); td != nil {
		t.Fatalf("expected no trace data, got %+v", td)
	}
	if jc.PayloadString("file_id") != "x" {
		t.Fatalf("payload not decoded")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	h := stubHandler("file_process")
	if err := r.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(h); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if got := r.Types(); len(got) != 1 || got[0] != "file_process" {
		t.Fatalf("unexpected types: %v", got)
	}
}

type stubHandler string

func (s stubHandler) Type() string { return string(s) }
func (s stubHandler) Run(*Context) error { return nil }

func TestRegistryRequireReportsMissing(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubHandler("file_process")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Require("file_process"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.Require(types.PipelineTypes()...)
	if err == nil {
		t.Fatalf("expected missing handlers error")
	}
	want := "no handler registered for job types: company_parse, evidence_extract, question_generate"
	if err.Error() != want {
		t.Fatalf("got %q", err.Error())
	}
}

func TestFailMarksPreconditionErrorsTerminal(t *testing.T) {
	job := &types.JobRun{ID: uuid.New(), JobType: "company_parse"}
	jc := NewContext(context.Background(), nil, job, nil)
	jc.Fail("parse", errors.New("backend timeout"))
	if job.Status != types.StatusFailed || job.Terminal {
		t.Fatalf("transient failure should stay retryable: %+v", job)
	}
	jc.Fail("parse", fmt.Errorf("company x: %w", pkgerrors.ErrEmptyEvidence))
	if !job.Terminal {
		t.Fatalf("empty evidence should be terminal")
	}
}
