package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/auditbridge-backend/internal/http/response"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type EvidenceHandler struct {
	extraction  services.EvidenceExtractionService
	questions   services.QuestionService
	coordinator services.PipelineCoordinator
}

func NewEvidenceHandler(extraction services.EvidenceExtractionService, questions services.QuestionService, coordinator services.PipelineCoordinator) *EvidenceHandler {
	return &EvidenceHandler{extraction: extraction, questions: questions, coordinator: coordinator}
}

type extractRequest struct {
	Text string `json:"text"`
}

// POST /api/audits/:audit_id/criteria/:criterion_id/actions/extract-evidence
//
// One job is scheduled per unextracted file, plus one for the "text" body
// when present.
func (h *EvidenceHandler) Extract(c *gin.Context) {
	ids, ok := uuidParams(c, "audit_id", "criterion_id")
	if !ok {
		return
	}
	var req extractRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	jobs, err := h.coordinator.OnExtractEvidenceRequested(dbctx.Context{Ctx: c.Request.Context()}, ids[0], ids[1], req.Text)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"jobs": jobs})
}

// GET /api/audits/:audit_id/criteria/:criterion_id/unextracted-evidence
func (h *EvidenceHandler) ListUnextracted(c *gin.Context) {
	ids, ok := uuidParams(c, "audit_id", "criterion_id")
	if !ok {
		return
	}
	files, err := h.extraction.PendingFiles(dbctx.Context{Ctx: c.Request.Context()}, ids[0], ids[1])
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"evidence_files": files})
}

// GET /api/audits/:audit_id/criteria/:criterion_id/evidence
func (h *EvidenceHandler) List(c *gin.Context) {
	ids, ok := uuidParams(c, "audit_id", "criterion_id")
	if !ok {
		return
	}
	rows, err := h.extraction.ListEvidence(dbctx.Context{Ctx: c.Request.Context()}, ids[0], ids[1])
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"evidence": rows})
}

// POST /api/audits/:audit_id/criteria/:criterion_id/questions
func (h *EvidenceHandler) RequestQuestions(c *gin.Context) {
	ids, ok := uuidParams(c, "audit_id", "criterion_id")
	if !ok {
		return
	}
	job, err := h.coordinator.OnQuestionsRequested(dbctx.Context{Ctx: c.Request.Context()}, ids[0], ids[1])
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}

// GET /api/audits/:audit_id/criteria/:criterion_id/questions
func (h *EvidenceHandler) ListQuestions(c *gin.Context) {
	ids, ok := uuidParams(c, "audit_id", "criterion_id")
	if !ok {
		return
	}
	qs, err := h.questions.List(dbctx.Context{Ctx: c.Request.Context()}, ids[0], ids[1])
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"questions": qs})
}
