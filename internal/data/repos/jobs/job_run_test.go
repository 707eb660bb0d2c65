package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
)

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()

	queued := &types.JobRun{
		ID:         uuid.New(),
		JobType:    "file_process",
		EntityType: "evidence_file",
		EntityID:   ptrUUID(uuid.New()),
		Status:     types.StatusQueued,
		Stage:      "queued",
		Payload:    datatypes.JSON([]byte("{}")),
		Result:     datatypes.JSON([]byte("{}")),
		CreatedAt:  now.Add(-3 * time.Hour),
		UpdatedAt:  now.Add(-3 * time.Hour),
	}
	failed := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "file_process",
		EntityType:  "evidence_file",
		EntityID:    ptrUUID(uuid.New()),
		Status:      types.StatusFailed,
		Stage:       "failed",
		LastErrorAt: ptrTime(now.Add(-2 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-2 * time.Hour),
	}
	staleRunning := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "evidence_extract",
		EntityType:  "evidence_file",
		EntityID:    ptrUUID(uuid.New()),
		Status:      types.StatusRunning,
		Stage:       "running",
		HeartbeatAt: ptrTime(now.Add(-10 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-1 * time.Hour),
		UpdatedAt:   now.Add(-1 * time.Hour),
	}
	exhausted := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "file_process",
		Status:      types.StatusFailed,
		Stage:       "failed",
		Attempts:    3,
		LastErrorAt: ptrTime(now.Add(-5 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-6 * time.Hour),
		UpdatedAt:   now.Add(-6 * time.Hour),
	}

	created, err := repo.Create(dbc, []*types.JobRun{queued, failed, staleRunning, exhausted})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("Create: expected 4, got %d", len(created))
	}

	if got, err := repo.GetByID(dbc, queued.ID); err != nil || got == nil || got.JobType != "file_process" {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}

	// ClaimNextRunnable walks the runnable set in created_at ASC order and
	// skips jobs that spent their attempts.
	want := []uuid.UUID{queued.ID, failed.ID, staleRunning.ID}
	for i, id := range want {
		claim, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour)
		if err != nil {
			t.Fatalf("ClaimNextRunnable #%d: %v", i+1, err)
		}
		if claim == nil || claim.ID != id {
			t.Fatalf("ClaimNextRunnable #%d: expected %v got %v", i+1, id, claim)
		}
		if claim.Status != types.StatusRunning {
			t.Fatalf("ClaimNextRunnable #%d: status %q", i+1, claim.Status)
		}
	}
	if claim, err := repo.ClaimNextRunnable(dbc, 3, 1*time.Hour, 1*time.Hour); err != nil || claim != nil {
		t.Fatalf("ClaimNextRunnable: expected nothing runnable, got %v err=%v", claim, err)
	}

	if err := repo.UpdateFields(dbc, queued.ID, map[string]interface{}{"status": types.StatusSucceeded, "stage": "done"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := repo.Heartbeat(dbc, failed.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	counts, err := repo.CountByStatus(dbc)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[types.StatusSucceeded] != 1 || counts[types.StatusRunning] != 2 || counts[types.StatusFailed] != 1 {
		t.Fatalf("CountByStatus: unexpected %v", counts)
	}

	entityID := uuid.New()
	runnable := &types.JobRun{
		JobType:    "company_parse",
		EntityType: "company",
		EntityID:   &entityID,
		Status:     types.StatusQueued,
		Stage:      "queued",
		Payload:    datatypes.JSON([]byte("{}")),
	}
	if _, err := repo.Create(dbc, []*types.JobRun{runnable}); err != nil {
		t.Fatalf("seed runnable: %v", err)
	}
	if runnable.ID == uuid.Nil {
		t.Fatalf("Create should assign an id")
	}

	exists, err := repo.ExistsRunnable(dbc, "company_parse", "company", &entityID)
	if err != nil || !exists {
		t.Fatalf("ExistsRunnable (scoped): exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsRunnable(dbc, "question_generate", "company", &entityID)
	if err != nil || exists {
		t.Fatalf("ExistsRunnable (other): exists=%v err=%v", exists, err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrUUID(u uuid.UUID) *uuid.UUID { return &u }
