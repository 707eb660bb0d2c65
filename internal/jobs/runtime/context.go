package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobrepo "github.com/yungbote/auditbridge-backend/internal/data/repos/jobs"
	types "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
)

/*
Context is the execution handle for a single claimed job run.
Handlers never write job_run directly; lifecycle transitions go through
Progress, Fail and Succeed so the row and the in-memory copy stay in step.
*/
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	Repo    jobrepo.JobRunRepo
	payload map[string]any
}

// NewContext decodes the payload eagerly. A malformed payload decodes to an
// empty map and handlers fail on their own required-field checks.
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo jobrepo.JobRunRepo) *Context {
	c := &Context{
		Ctx:  ctxutil.Default(ctx),
		DB:   db,
		Job:  job,
		Repo: repo,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil || m == nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	td := &ctxutil.TraceData{
		TraceID:   c.PayloadString("trace_id"),
		RequestID: c.PayloadString("request_id"),
		AuditID:   c.PayloadString("audit_id"),
		CompanyID: c.PayloadString("company_id"),
	}
	if *td == (ctxutil.TraceData{}) {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, td)
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := c.PayloadString(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (c *Context) PayloadBool(key string) bool {
	v, ok := c.Payload()[key].(bool)
	return ok && v
}

// PayloadUUIDs reads a JSON array of uuid strings, dropping unparseable entries.
func (c *Context) PayloadUUIDs(key string) []uuid.UUID {
	raw, ok := c.Payload()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(strings.TrimSpace(fmt.Sprint(v)))
		if err != nil || id == uuid.Nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (c *Context) update(updates map[string]interface{}) {
	if c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	// A lost write leaves the claim to go stale and be reclaimed.
	_ = c.Repo.UpdateFields(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, updates)
}

// Progress records a non-terminal stage and refreshes the heartbeat.
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	c.update(map[string]interface{}{
		"stage":        stage,
		"progress":     pct,
		"message":      msg,
		"heartbeat_at": now,
		"updated_at":   now,
	})
	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Progress = pct
		c.Job.Message = msg
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
}

// Fail marks the run failed and releases the claim. The worker retries
// failed runs until the attempt limit, except when err wraps one of the
// precondition sentinels, which makes the failure terminal.
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	terminal := pkgerrors.Permanent(err)
	c.update(map[string]interface{}{
		"status":        types.StatusFailed,
		"stage":         stage,
		"message":       "",
		"error":         msg,
		"terminal":      terminal,
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
	if c.Job != nil {
		c.Job.Status = types.StatusFailed
		c.Job.Stage = stage
		c.Job.Message = ""
		c.Job.Error = msg
		c.Job.Terminal = terminal
		c.Job.LastErrorAt = &now
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
	}
}

// Succeed marks the run succeeded and stores result as JSON.
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	c.update(map[string]interface{}{
		"status":       types.StatusSucceeded,
		"stage":        finalStage,
		"progress":     100,
		"message":      "",
		"error":        "",
		"result":       res,
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	})
	if c.Job != nil {
		c.Job.Status = types.StatusSucceeded
		c.Job.Stage = finalStage
		c.Job.Progress = 100
		c.Job.Message = ""
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
}

// Finished reports whether a handler already recorded a terminal status.
func (c *Context) Finished() bool {
	if c == nil || c.Job == nil {
		return false
	}
	return c.Job.Status == types.StatusSucceeded || c.Job.Status == types.StatusFailed
}
