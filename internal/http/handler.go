// Package httpapi exposes the small operational surface of each worker: a
// health endpoint probing the worker's collaborators.
package httpapi

import (
	"context"
	"net/http"
)

// Check probes one collaborator (database pool, broker connection).
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Handler struct {
	checks []Check
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	for _, c := range h.checks {
		if err := c.Probe(r.Context()); err != nil {
			http.Error(w, c.Name+" unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
