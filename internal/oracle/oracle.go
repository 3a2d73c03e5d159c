// Package oracle resolves a conversation thread into tool intents and a
// final structured verdict.
package oracle

import (
	"context"
	"iter"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/llm"
	"github.com/ziadkadry99/shopagent/internal/tools"
)

// Verdict is the structured outcome of a resolved thread.
type Verdict struct {
	Status     agent.Status `json:"status"`
	Message    string       `json:"message"`
	Confidence float64      `json:"confidence"`
	Sources    []string     `json:"sources"`
}

// Step is one element of a Resolve stream: either a tool intent, observed
// before the tool runs, or the final verdict.
type Step struct {
	Call  tools.Call
	Final *Verdict
}

// IsFinal reports whether the step carries the verdict.
func (s Step) IsFinal() bool { return s.Final != nil }

// Oracle is a reasoning backend.
type Oracle interface {
	// Resolve appends messages to the thread and reasons over it. The
	// stream stops early when the consumer stops ranging.
	Resolve(ctx context.Context, threadID string, messages []llm.Message) iter.Seq2[Step, error]

	// State returns the current verdict for the thread, or nil if it has
	// none.
	State(ctx context.Context, threadID string) (*Verdict, error)
}
