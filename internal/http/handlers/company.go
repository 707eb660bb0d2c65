package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/auditbridge-backend/internal/http/response"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type CompanyHandler struct {
	coordinator services.PipelineCoordinator
}

func NewCompanyHandler(coordinator services.PipelineCoordinator) *CompanyHandler {
	return &CompanyHandler{coordinator: coordinator}
}

type parseEvidenceRequest struct {
	FileIDs       []uuid.UUID `json:"file_ids"`
	Text          string      `json:"text"`
	ReprocessOnly bool        `json:"reprocess_only"`
}

// POST /api/companies/:company_id/evidence
func (h *CompanyHandler) ParseEvidence(c *gin.Context) {
	ids, ok := uuidParams(c, "company_id")
	if !ok {
		return
	}
	var req parseEvidenceRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	job, err := h.coordinator.OnEvidenceParseRequested(dbctx.Context{Ctx: c.Request.Context()}, services.ParseRequest{
		CompanyID:     ids[0],
		FileIDs:       req.FileIDs,
		Text:          req.Text,
		ReprocessOnly: req.ReprocessOnly,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}
