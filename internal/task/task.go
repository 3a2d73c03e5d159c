// Package task drives a single query from submission to its terminal
// answer, consulting the response cache, the reasoning oracle and the web
// search fallback, and streams progress events to the caller.
package task

import (
	"sync"
	"time"

	"github.com/ziadkadry99/shopagent/internal/agent"
)

// State is a task's position in its lifecycle.
type State string

const (
	StateCreated           State = "created"
	StateValidating        State = "validating"
	StateRetrieving        State = "retrieving"
	StateAwaitingReasoning State = "awaiting_reasoning"
	StateInputRequired     State = "input_required"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

// eventBuffer lets a task run ahead of a slow consumer.
const eventBuffer = 64

// Task is one running query. Consume Events until it closes, or call Wait.
type Task struct {
	ID      string
	Request agent.QueryRequest

	events chan Event
	now    func() time.Time

	mu     sync.Mutex
	state  State
	answer agent.Answer
	err    error
}

func newTask(id string, req agent.QueryRequest, now func() time.Time) *Task {
	if now == nil {
		now = time.Now
	}
	return &Task{
		ID:      id,
		Request: req,
		events:  make(chan Event, eventBuffer),
		now:     now,
		state:   StateCreated,
	}
}

// Events yields progress events in emission order, ending with exactly one
// terminal event, and is then closed.
func (t *Task) Events() <-chan Event { return t.events }

// Wait drains any unread events and returns the terminal answer together
// with the internal error reported alongside it, if any.
func (t *Task) Wait() (agent.Answer, error) {
	for range t.events {
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.answer.Clone(), t.err
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Task) emit(e Event) {
	e.TaskID = t.ID
	e.ContextID = t.Request.ContextID
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}
	t.events <- e
}

// finish records the outcome, emits the terminal event and closes the
// stream.
func (t *Task) finish(phase Phase, state State, answer agent.Answer, err error) {
	t.mu.Lock()
	t.state = state
	t.answer = answer
	t.err = err
	t.mu.Unlock()

	a := answer.Clone()
	t.emit(Event{Phase: phase, Content: answer.Message, Answer: &a, Err: err})
	close(t.events)
}
