package file_process

import (
	"fmt"

	jobrt "github.com/yungbote/auditbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	fileID, ok := jc.PayloadUUID("file_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing file_id: %w", pkgerrors.ErrInvalidArgument))
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	// A previous attempt may have died between claim and finish. A file that
	// is still fresh in processing belongs to a live run and is left alone.
	if jc.Job.Attempts > 1 {
		if _, err := p.files.Unclaim(dbc, fileID, p.staleAfter); err != nil {
			return err
		}
	}

	jc.Progress("extract", 10, "Extracting text")
	report, err := p.files.Process(dbc, fileID)
	if err != nil {
		return err
	}
	p.log.Debug("file processed", "file_id", fileID, "outcome", report.Outcome)
	jc.Succeed("done", report)
	return nil
}
