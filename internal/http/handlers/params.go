package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/auditbridge-backend/internal/http/response"
)

// uuidParams parses the named path params, writing a 400 for the first bad one.
func uuidParams(c *gin.Context, names ...string) ([]uuid.UUID, bool) {
	out := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		id, err := uuid.Parse(c.Param(name))
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_"+name, fmt.Errorf("%s: %w", name, err))
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

// bindOptionalJSON decodes a JSON body into dst when one was sent. It writes
// a 400 and returns false on a malformed body.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}
