// Package dashboard serves the browser chat client and its conversation
// controls.
package dashboard

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/shopagent/internal/logger"
)

// Threads removes stored conversation threads.
type Threads interface {
	DeleteThread(ctx context.Context, threadID string) error
}

// Dashboard provides the chat page. Answers stream over the task WebSocket
// served by the main router.
type Dashboard struct {
	threads Threads
	log     logger.Logger
}

// New creates a new Dashboard. threads may be nil, in which case
// conversation reset is unavailable.
func New(threads Threads, log logger.Logger) *Dashboard {
	if log == nil {
		log = logger.Default()
	}
	return &Dashboard{threads: threads, log: log}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Delete("/api/dashboard/threads/{id}", d.handleResetThread)
}
