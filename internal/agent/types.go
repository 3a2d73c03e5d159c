// Package agent holds the domain types shared by the retrieval pipeline:
// the inbound query and the structured answer produced for it.
package agent

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the verdict a task resolves to.
type Status string

const (
	StatusInputRequired Status = "input_required"
	StatusCompleted     Status = "completed"
	StatusError         Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInputRequired, StatusCompleted, StatusError:
		return true
	}
	return false
}

// QueryRequest is a single inbound message. It is never mutated after creation.
type QueryRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
	ContextID string `json:"context_id"`
}

// CacheSession returns the identifier used to scope cached answers.
// Requests without a session are scoped by their context.
func (q QueryRequest) CacheSession() string {
	if q.SessionID != "" {
		return q.SessionID
	}
	return q.ContextID
}

// Answer is the terminal, cacheable result of a task.
type Answer struct {
	Status         Status   `json:"status"`
	Message        string   `json:"message"`
	Confidence     float64  `json:"confidence"`
	Sources        []string `json:"sources"`
	ProcessingTime float64  `json:"processing_time"`
	FromCache      bool     `json:"from_cache"`
	ToolsUsed      []string `json:"tools_used"`
}

// Clone returns a deep copy so cached values are never shared with callers.
func (a Answer) Clone() Answer {
	out := a
	if a.Sources != nil {
		out.Sources = append([]string(nil), a.Sources...)
	}
	if a.ToolsUsed != nil {
		out.ToolsUsed = append([]string(nil), a.ToolsUsed...)
	}
	return out
}

// NeedsInput reports whether the answer belongs to the input-required class.
// Both input_required and error verdicts land here.
func (a Answer) NeedsInput() bool {
	return a.Status != StatusCompleted
}

// Footer renders the answer's metadata line: confidence, the first two
// sources, a cache marker and timing. Unset parts are left out.
func (a Answer) Footer() string {
	var parts []string
	if a.Confidence > 0 {
		parts = append(parts, fmt.Sprintf("Confidence: %.2f", a.Confidence))
	}
	if len(a.Sources) > 0 {
		parts = append(parts, "Sources: "+strings.Join(a.Sources[:min(2, len(a.Sources))], ", "))
	}
	if a.FromCache {
		parts = append(parts, "From cache")
	}
	if a.ProcessingTime > 0 {
		parts = append(parts, fmt.Sprintf("%.2fs", a.ProcessingTime))
	}
	return strings.Join(parts, " | ")
}

// Render returns the message followed by the metadata footer, if any.
func (a Answer) Render() string {
	footer := a.Footer()
	if footer == "" {
		return a.Message
	}
	return a.Message + "\n\n---\n" + footer
}

// ToolSet collects distinct tool names in first-seen order.
type ToolSet struct {
	seen  map[string]struct{}
	names []string
}

// Add records name once.
func (s *ToolSet) Add(name string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
}

// Sorted returns the recorded names in lexical order.
func (s *ToolSet) Sorted() []string {
	out := append([]string{}, s.names...)
	sort.Strings(out)
	return out
}
