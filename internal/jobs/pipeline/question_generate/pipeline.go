package question_generate

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
	auditID, ok1 := jc.PayloadUUID("audit_id")
	criterionID, ok2 := jc.PayloadUUID("criterion_id")
	if !ok1 || !ok2 {
		jc.Fail("validate", fmt.Errorf("audit_id and criterion_id required: %w", pkgerrors.ErrInvalidArgument))
		return nil
	}

	jc.Progress("generate", 10, "Generating questions")
	qs, err := p.questions.Generate(dbctx.Context{Ctx: jc.Ctx}, auditID, criterionID)
	if err != nil {
		jc.Fail("generate", err)
		return nil
	}
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID.String())
	}
	jc.Succeed("done", map[string]any{"question_ids": ids, "count": len(ids)})
	return nil
}
