package task

import (
	"time"

	"github.com/ziadkadry99/shopagent/internal/agent"
)

// Phase identifies what a progress event reports.
type Phase string

const (
	PhaseStarted       Phase = "started"
	PhaseToolInvoked   Phase = "tool_invoked"
	PhaseCompleted     Phase = "completed"
	PhaseInputRequired Phase = "input_required"
	// PhaseFailed reports a request rejected before any task ran.
	PhaseFailed Phase = "failed"
)

// Terminal reports whether an event of this phase ends a stream.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseInputRequired, PhaseFailed:
		return true
	}
	return false
}

// Event is one progress notification. Terminal events carry the Answer;
// Err is set when the task also reports an internal fault.
type Event struct {
	TaskID    string        `json:"task_id"`
	ContextID string        `json:"context_id"`
	Phase     Phase         `json:"phase"`
	Tool      string        `json:"tool,omitempty"`
	Content   string        `json:"content"`
	Answer    *agent.Answer `json:"answer,omitempty"`
	Err       error         `json:"-"`
	Timestamp time.Time     `json:"timestamp"`
}

// Terminal reports whether e ends its task's stream.
func (e Event) Terminal() bool { return e.Phase.Terminal() }

// Rejected builds the failed event for a request that never became a task.
func Rejected(req agent.QueryRequest, err error) Event {
	return Event{
		ContextID: req.ContextID,
		Phase:     PhaseFailed,
		Content:   err.Error(),
		Err:       err,
		Timestamp: time.Now(),
	}
}
