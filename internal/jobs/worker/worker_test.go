package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/datatypes"

	jobrepo "github.com/yungbote/auditbridge-backend/internal/data/repos/jobs"
	"github.com/yungbote/auditbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
)

type funcHandler struct {
	jobType string
	run     func(*runtime.Context) error
}

func (h funcHandler) Type() string                 { return h.jobType }
func (h funcHandler) Run(c *runtime.Context) error { return h.run(c) }

func TestRunOnceRecordsTerminalStatus(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobrepo.NewJobRunRepo(db, log)

	reg := runtime.NewRegistry()
	var seen string
	mustRegister(t, reg, funcHandler{"ok", func(c *runtime.Context) error {
		seen = c.PayloadString("name")
		return nil
	}})
	mustRegister(t, reg, funcHandler{"explicit", func(c *runtime.Context) error {
		c.Succeed("custom", map[string]any{"n": 3})
		return nil
	}})
	mustRegister(t, reg, funcHandler{"boom", func(c *runtime.Context) error {
		return errors.New("backend down")
	}})
	mustRegister(t, reg, funcHandler{"panics", func(c *runtime.Context) error {
		panic("nil map")
	}})

	jobs := []*types.JobRun{
		{JobType: "ok", Status: types.StatusQueued, Stage: "queued", Payload: datatypes.JSON(`{"name":"alpha"}`)},
		{JobType: "explicit", Status: types.StatusQueued, Stage: "queued"},
		{JobType: "boom", Status: types.StatusQueued, Stage: "queued"},
		{JobType: "panics", Status: types.StatusQueued, Stage: "queued"},
		{JobType: "unknown", Status: types.StatusQueued, Stage: "queued"},
	}
	if _, err := repo.Create(dbctx.Context{Ctx: ctx}, jobs); err != nil {
		t.Fatalf("create jobs: %v", err)
	}

	w := NewWorker(db, log, repo, reg, observability.New(), Config{MaxAttempts: 1})
	for i := 0; i < len(jobs); i++ {
		ran, err := w.RunOnce(ctx, 1)
		if err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if !ran {
			t.Fatalf("expected job %d to be claimed", i)
		}
	}
	if ran, _ := w.RunOnce(ctx, 1); ran {
		t.Fatalf("failed jobs are out of attempts and should not be reclaimed")
	}
	if seen != "alpha" {
		t.Fatalf("payload not delivered, got %q", seen)
	}

	want := map[string]struct{ status, stage string }{
		"ok":       {types.StatusSucceeded, "done"},
		"explicit": {types.StatusSucceeded, "custom"},
		"boom":     {types.StatusFailed, "run"},
		"panics":   {types.StatusFailed, "panic"},
		"unknown":  {types.StatusFailed, "dispatch"},
	}
	for _, j := range jobs {
		got, err := repo.GetByID(dbctx.Context{Ctx: ctx}, j.ID)
		if err != nil || got == nil {
			t.Fatalf("get %s: %v", j.JobType, err)
		}
		exp := want[j.JobType]
		if got.Status != exp.status || got.Stage != exp.stage {
			t.Fatalf("%s: got %s/%s want %s/%s", j.JobType, got.Status, got.Stage, exp.status, exp.stage)
		}
		if got.Status == types.StatusFailed && got.Error == "" {
			t.Fatalf("%s: failed job should carry an error", j.JobType)
		}
	}
}

func TestPreconditionFailuresAreNotRetried(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobrepo.NewJobRunRepo(db, log)

	runs := map[string]int{}
	reg := runtime.NewRegistry()
	mustRegister(t, reg, funcHandler{"flaky", func(c *runtime.Context) error {
		runs["flaky"]++
		return errors.New("backend timeout")
	}})
	mustRegister(t, reg, funcHandler{"missing", func(c *runtime.Context) error {
		runs["missing"]++
		return fmt.Errorf("audit gone: %w", pkgerrors.ErrNotFound)
	}})
	mustRegister(t, reg, funcHandler{"empty", func(c *runtime.Context) error {
		runs["empty"]++
		c.Fail("parse", fmt.Errorf("company x: %w", pkgerrors.ErrEmptyEvidence))
		return nil
	}})

	jobs := []*types.JobRun{
		{JobType: "flaky", Status: types.StatusQueued, Stage: "queued"},
		{JobType: "missing", Status: types.StatusQueued, Stage: "queued"},
		{JobType: "empty", Status: types.StatusQueued, Stage: "queued"},
	}
	if _, err := repo.Create(dbctx.Context{Ctx: ctx}, jobs); err != nil {
		t.Fatalf("create jobs: %v", err)
	}

	w := NewWorker(db, log, repo, reg, observability.New(), Config{MaxAttempts: 3, RetryDelay: time.Nanosecond})
	for i := 0; i < 10; i++ {
		ran, err := w.RunOnce(ctx, 1)
		if err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if !ran {
			break
		}
	}
	if runs["flaky"] != 3 || runs["missing"] != 1 || runs["empty"] != 1 {
		t.Fatalf("unexpected run counts: %v", runs)
	}
	for _, j := range jobs {
		got, err := repo.GetByID(dbctx.Context{Ctx: ctx}, j.ID)
		if err != nil || got == nil {
			t.Fatalf("get %s: %v", j.JobType, err)
		}
		if got.Status != types.StatusFailed {
			t.Fatalf("%s: status %s", j.JobType, got.Status)
		}
		if want := j.JobType != "flaky"; got.Terminal != want {
			t.Fatalf("%s: terminal=%v", j.JobType, got.Terminal)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := runtime.NewRegistry()
	mustRegister(t, reg, funcHandler{"a", func(*runtime.Context) error { return nil }})
	if err := reg.Register(funcHandler{"a", func(*runtime.Context) error { return nil }}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := reg.Register(funcHandler{"", nil}); err == nil {
		t.Fatalf("expected empty type error")
	}
}

func mustRegister(t *testing.T, reg *runtime.Registry, h runtime.Handler) {
	t.Helper()
	if err := reg.Register(h); err != nil {
		t.Fatalf("register %s: %v", h.Type(), err)
	}
}
