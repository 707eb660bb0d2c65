package worker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	jobrepo "github.com/yungbote/auditbridge-backend/internal/data/repos/jobs"
	types "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type Config struct {
	Concurrency       int
	PollInterval      time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	StaleRunning      time.Duration
	HeartbeatInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 30 * time.Minute
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = time.Minute
	}
	return c
}

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     jobrepo.JobRunRepo
	registry *runtime.Registry
	metrics  *observability.Metrics
	cfg      Config
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo jobrepo.JobRunRepo, registry *runtime.Registry, metrics *observability.Metrics, cfg Config) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
	}
}

// Start launches the pool and returns immediately. Loops exit when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.cfg.Concurrency; i++ {
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for ctx.Err() == nil {
				ran, err := w.RunOnce(ctx, workerID)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if !ran {
					break
				}
			}
		}
	}
}

// RunOnce claims at most one runnable job and executes it. It reports whether
// a job was claimed.
func (w *Worker) RunOnce(ctx context.Context, workerID int) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.execute(ctx, workerID, job)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, workerID int, job *types.JobRun) {
	start := time.Now()
	spanCtx, span := otel.Tracer("auditbridge/jobs").Start(ctx, "job."+job.JobType)
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.type", job.JobType),
		attribute.Int("job.attempts", job.Attempts),
	)
	defer span.End()

	jc := runtime.NewContext(spanCtx, w.db, job, w.repo)
	log := w.log.With("worker_id", workerID, "job_id", job.ID, "job_type", job.JobType)
	if td := ctxutil.GetTraceData(jc.Ctx); td != nil {
		if td.AuditID != "" {
			span.SetAttributes(attribute.String("audit.id", td.AuditID))
			log = log.With("audit_id", td.AuditID)
		}
		if td.CompanyID != "" {
			span.SetAttributes(attribute.String("company.id", td.CompanyID))
			log = log.With("company_id", td.CompanyID)
		}
	}

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		log.Warn("No handler registered for job_type")
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		w.finish(span, jc, start)
		return
	}

	stopBeat := w.heartbeat(spanCtx, job)
	defer stopBeat()

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Job handler panic", "panic", r)
				jc.Fail("panic", errFromRecover(r))
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			log.Warn("Job handler failed", "error", runErr, "attempt", job.Attempts)
			jc.Fail("run", runErr)
			return
		}
		if !jc.Finished() {
			jc.Succeed("done", nil)
		}
	}()
	w.finish(span, jc, start)
}

func (w *Worker) finish(span trace.Span, jc *runtime.Context, start time.Time) {
	status := jc.Job.Status
	if status == types.StatusFailed {
		span.SetStatus(codes.Error, jc.Job.Error)
	}
	w.metrics.ObserveJob(jc.Job.JobType, status, time.Since(start))
}

// heartbeat keeps a long running claim from being treated as stale.
func (w *Worker) heartbeat(ctx context.Context, job *types.JobRun) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(w.cfg.HeartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := w.repo.Heartbeat(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
					w.log.Warn("job heartbeat failed", "job_id", job.ID, "error", err)
				}
			}
		}
	}()
	return cancel
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
