// Package fallback decides whether a terminal answer should be replaced by
// a live web search and performs that escalation.
package fallback

import (
	"context"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/tools"
	"github.com/ziadkadry99/shopagent/internal/websearch"
)

const (
	// DefaultMaxResults is how many web results an escalation asks for.
	DefaultMaxResults = 3

	// EscalationPhrase is the progress text emitted when escalating.
	EscalationPhrase = "No exact match in database. Searching the web for the latest information..."

	webConfidence   = 0.6
	emptyConfidence = 0.5
	maxSources      = 3

	noSnippetMessage = "Không tìm thấy thông tin phù hợp trên web."
	noResultsMessage = "Không thể truy cập công cụ tìm kiếm web lúc này."
)

// Outcome reports what Apply did with an answer.
type Outcome int

const (
	// Skipped means the answer did not qualify for escalation.
	Skipped Outcome = iota
	// Escalated means the web search ran and the answer was replaced.
	Escalated
	// Failed means the web search was attempted but errored; the answer
	// is returned unchanged.
	Failed
)

// Notify receives the progress phrase for the escalation's web search.
type Notify func(tool tools.Kind, content string)

// Policy escalates input_required answers to web search.
type Policy struct {
	web        websearch.Searcher
	enabled    bool
	maxResults int
	log        logger.Logger
}

// New returns a Policy. Escalation is off when enabled is false or web is nil.
func New(web websearch.Searcher, enabled bool, log logger.Logger) *Policy {
	if log == nil {
		log = logger.Default()
	}
	return &Policy{web: web, enabled: enabled && web != nil, maxResults: DefaultMaxResults, log: log}
}

// Enabled reports whether the policy can escalate at all.
func (p *Policy) Enabled() bool { return p.enabled }

// ShouldEscalate reports whether answer triggers a web search. Only
// input_required does; error answers are returned as they are.
func (p *Policy) ShouldEscalate(answer agent.Answer) bool {
	return p.enabled && answer.Status == agent.StatusInputRequired
}

// Apply escalates answer when ShouldEscalate holds and returns the answer
// to deliver with the Outcome. Search failures are logged and the
// original answer is kept.
func (p *Policy) Apply(ctx context.Context, query string, answer agent.Answer, notify Notify) (agent.Answer, Outcome) {
	if !p.ShouldEscalate(answer) {
		return answer, Skipped
	}
	if notify != nil {
		notify(tools.WebSearch, EscalationPhrase)
	}

	results, err := p.web.Search(ctx, query, p.maxResults)
	if err != nil {
		p.log.Warn("web search fallback failed", "error", err)
		return answer, Failed
	}

	out := answer.Clone()
	out.Status = agent.StatusCompleted
	out.FromCache = false

	if len(results) == 0 {
		out.Confidence = emptyConfidence
		out.Sources = []string{}
		if out.Message == "" {
			out.Message = noResultsMessage
		}
		return out, Escalated
	}

	top := results[0]
	msg := top.Snippet
	if top.Link != "" {
		msg = top.Snippet + "\n\nNguồn: " + top.Link
	}
	if msg == "" {
		msg = noSnippetMessage
	}
	out.Message = msg
	out.Confidence = webConfidence
	out.Sources = links(results, maxSources)
	return out, Escalated
}

func links(results []websearch.Result, n int) []string {
	out := []string{}
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		out = append(out, r.Link)
		if len(out) == n {
			break
		}
	}
	return out
}
