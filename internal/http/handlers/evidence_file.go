package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/auditbridge-backend/internal/http/response"
	"github.com/yungbote/auditbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type EvidenceFileHandler struct {
	log         *logger.Logger
	files       services.EvidenceFileService
	coordinator services.PipelineCoordinator
	maxBytes    int64
}

func NewEvidenceFileHandler(log *logger.Logger, files services.EvidenceFileService, coordinator services.PipelineCoordinator, maxBytes int64) *EvidenceFileHandler {
	if maxBytes <= 0 {
		maxBytes = 512 << 20
	}
	return &EvidenceFileHandler{
		log:         log.With("handler", "EvidenceFileHandler"),
		files:       files,
		coordinator: coordinator,
		maxBytes:    maxBytes,
	}
}

// POST /api/audits/:audit_id/evidence-files
func (h *EvidenceFileHandler) Upload(c *gin.Context) {
	ids, ok := uuidParams(c, "audit_id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", fmt.Errorf("read upload: %w", err))
		return
	}

	file, err := h.files.Upload(dbctx.Context{Ctx: c.Request.Context()}, services.UploadInput{
		AuditID:   ids[0],
		Filename:  fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Data:      data,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"evidence_file": file})
}

// GET /api/audits/:audit_id/evidence-files/:file_id
func (h *EvidenceFileHandler) Get(c *gin.Context) {
	ids, ok := uuidParams(c, "audit_id", "file_id")
	if !ok {
		return
	}
	file, err := h.files.Get(dbctx.Context{Ctx: c.Request.Context()}, ids[0], ids[1])
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"evidence_file": file})
}

// POST /api/audits/:audit_id/evidence-files/:file_id/actions/reprocess
func (h *EvidenceFileHandler) Reprocess(c *gin.Context) {
	ids, ok := uuidParams(c, "audit_id", "file_id")
	if !ok {
		return
	}
	job, err := h.coordinator.Reprocess(dbctx.Context{Ctx: c.Request.Context()}, ids[0], ids[1])
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}
