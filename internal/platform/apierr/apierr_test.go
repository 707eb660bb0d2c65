package apierr

import (
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/yungbote/auditbridge-backend/internal/pkg/errors"
)

func TestFromMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("audit %s: %w", "x", pkgerrors.ErrNotFound), http.StatusNotFound},
		{pkgerrors.ErrAlreadyAssociated, http.StatusConflict},
		{pkgerrors.ErrEmptyEvidence, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
		{New(http.StatusTeapot, "teapot", nil), http.StatusTeapot},
	}
	for _, tc := range cases {
		if got := From(tc.err); got.Status != tc.status {
			t.Fatalf("From(%v) status=%d want %d", tc.err, got.Status, tc.status)
		}
	}
	if From(nil) != nil {
		t.Fatalf("From(nil) should be nil")
	}
}
