package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Probe checks one dependency. It should return promptly once ctx is done.
type Probe func(ctx context.Context) error

type HealthHandler struct {
	probes  map[string]Probe
	timeout time.Duration
}

func NewHealthHandler(probes map[string]Probe) *HealthHandler {
	return &HealthHandler{probes: probes, timeout: 3 * time.Second}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if len(h.probes) == 0 {
		c.String(http.StatusOK, "ok")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.probes))
	results := make([]string, len(h.probes))
	g, gctx := errgroup.WithContext(ctx)
	i := 0
	for name, probe := range h.probes {
		idx, probe := i, probe
		names = append(names, name)
		g.Go(func() error {
			if err := probe(gctx); err != nil {
				results[idx] = err.Error()
				return err
			}
			results[idx] = "ok"
			return nil
		})
		i++
	}
	err := g.Wait()

	checks := make(map[string]string, len(names))
	for j, name := range names {
		if results[j] == "" {
			results[j] = "skipped"
		}
		checks[name] = results[j]
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ok": err == nil, "checks": checks})
}
