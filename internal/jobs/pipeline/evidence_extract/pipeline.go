package evidence_extract

import (
	"fmt"

	jobrt "github.com/yungbote/auditbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

// Run extracts evidence for one criterion from either a stored file or text
// carried in the payload. Backend failures are reported in the result rather
// than retried; the source stays pending and a later request picks it up again.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	auditID, ok1 := jc.PayloadUUID("audit_id")
	criterionID, ok2 := jc.PayloadUUID("criterion_id")
	if !ok1 || !ok2 {
		jc.Fail("validate", fmt.Errorf("audit_id and criterion_id required: %w", pkgerrors.ErrInvalidArgument))
		return nil
	}
	fileID, hasFile := jc.PayloadUUID("file_id")
	text := jc.PayloadString("text")
	if !hasFile && text == "" {
		jc.Fail("validate", fmt.Errorf("file_id or text required: %w", pkgerrors.ErrInvalidArgument))
		return nil
	}

	dbc := dbctx.Context{Ctx: jc.Ctx}
	var (
		report services.ExtractionReport
		err    error
	)
	jc.Progress("extract", 10, "Extracting evidence")
	if hasFile {
		report, err = p.extraction.ExtractForFile(dbc, auditID, criterionID, fileID)
	} else {
		report, err = p.extraction.ExtractFromText(dbc, auditID, criterionID, text)
	}
	if err != nil {
		jc.Fail("extract", err)
		return nil
	}
	if report.Outcome == services.OutcomeBackendError {
		p.log.Warn("evidence backend failed",
			"source", report.Source,
			"source_id", report.SourceID,
			"criterion_id", criterionID,
			"error", report.Error,
		)
	}
	jc.Succeed("done", report)
	return nil
}
