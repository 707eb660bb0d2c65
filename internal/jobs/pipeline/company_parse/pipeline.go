package company_parse

import (
	"errors"
	"fmt"

	jobrt "github.com/yungbote/auditbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	companyID, ok := jc.PayloadUUID("company_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing company_id: %w", pkgerrors.ErrInvalidArgument))
		return nil
	}
	req := services.ParseRequest{
		CompanyID:     companyID,
		FileIDs:       jc.PayloadUUIDs("file_ids"),
		Text:          jc.PayloadString("text"),
		ReprocessOnly: jc.PayloadBool("reprocess_only"),
	}

	jc.Progress("parse", 10, "Folding evidence into company profile")
	res, err := p.profiles.Parse(dbctx.Context{Ctx: jc.Ctx}, req)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrEmptyEvidence) {
			p.log.Info("company has no raw evidence yet", "company_id", companyID)
		}
		jc.Fail("parse", err)
		return nil
	}
	jc.Succeed("done", res)
	return nil
}
