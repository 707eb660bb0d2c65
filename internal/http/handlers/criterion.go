package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/auditbridge-backend/internal/http/response"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type CriterionHandler struct {
	criteria services.CriterionService
}

func NewCriterionHandler(criteria services.CriterionService) *CriterionHandler {
	return &CriterionHandler{criteria: criteria}
}

// DELETE /api/criteria/custom/:criterion_id
func (h *CriterionHandler) DeleteCustom(c *gin.Context) {
	ids, ok := uuidParams(c, "criterion_id")
	if !ok {
		return
	}
	if err := h.criteria.DeleteCustom(dbctx.Context{Ctx: c.Request.Context()}, ids[0]); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
