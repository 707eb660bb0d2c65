package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobrepo "github.com/yungbote/auditbridge-backend/internal/data/repos/jobs"
	types "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	// EnqueueIfIdle skips enqueueing when a queued or running job already
	// covers the same (job type, entity). The bool reports whether a job was created.
	EnqueueIfIdle(dbc dbctx.Context, jobType string, entityType string, entityID uuid.UUID, payload map[string]any) (*types.JobRun, bool, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo jobrepo.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo jobrepo.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type: %w", pkgerrors.ErrInvalidArgument)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if _, ok := payload["trace_id"]; !ok && td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if _, ok := payload["request_id"]; !ok && td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	now := time.Now().UTC()
	job := &types.JobRun{
		ID:          uuid.New(),
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      types.StatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		HeartbeatAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	s.log.Debug("job enqueued", "job_id", job.ID, "job_type", jobType, "entity_type", entityType)
	return job, nil
}

func (s *jobService) EnqueueIfIdle(dbc dbctx.Context, jobType string, entityType string, entityID uuid.UUID, payload map[string]any) (*types.JobRun, bool, error) {
	exists, err := s.repo.ExistsRunnable(dbc, jobType, entityType, &entityID)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, nil
	}
	job, err := s.Enqueue(dbc, jobType, entityType, &entityID, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := s.repo.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, pkgerrors.ErrNotFound)
	}
	return job, nil
}
