package runtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Handler interface {
	Type() string
	Run(ctx *Context) error
}

// Registry maps a job_type to the handler the worker dispatches it to.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types lists registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Require fails when any of jobTypes has no handler. Queued rows of an
// unregistered type would otherwise sit until they exhaust their attempts.
func (r *Registry) Require(jobTypes ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []string
	for _, t := range jobTypes {
		if _, ok := r.handlers[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("no handler registered for job types: %s", strings.Join(missing, ", "))
	}
	return nil
}
