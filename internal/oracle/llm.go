package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/llm"
	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/tools"
)

const (
	// DefaultMaxToolSteps bounds the tool calls made in one Resolve.
	DefaultMaxToolSteps = 6
	// DefaultHistory is how many stored messages are replayed to the model.
	DefaultHistory = 40

	defaultTemperature = 0.1
	defaultMaxTokens   = 2048
)

// Runner executes tool calls on behalf of the oracle.
type Runner interface {
	Run(ctx context.Context, call tools.Call) (string, error)
}

// Config configures an LLMOracle.
type Config struct {
	Model        string
	MaxToolSteps int
	History      int
	Tools        []tools.Kind
	Logger       logger.Logger
}

// LLMOracle is a JSON-mode tool loop over an llm.Provider with thread
// checkpoints in a Store.
type LLMOracle struct {
	provider llm.Provider
	runner   Runner
	store    *Store
	cfg      Config
	system   string
	log      logger.Logger

	mu      sync.Mutex
	threads map[string]*threadLock
}

// threadLock serializes Resolve calls on one thread. refs counts holders
// and waiters so the entry can be dropped when the last one leaves.
type threadLock struct {
	sync.Mutex
	refs int
}

var _ Oracle = (*LLMOracle)(nil)

// NewLLMOracle builds an oracle. Tools defaults to every tool kind.
func NewLLMOracle(provider llm.Provider, runner Runner, store *Store, cfg Config) *LLMOracle {
	if cfg.MaxToolSteps <= 0 {
		cfg.MaxToolSteps = DefaultMaxToolSteps
	}
	if cfg.History <= 0 {
		cfg.History = DefaultHistory
	}
	if len(cfg.Tools) == 0 {
		cfg.Tools = tools.All()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &LLMOracle{
		provider: provider,
		runner:   runner,
		store:    store,
		cfg:      cfg,
		system:   SystemInstruction(cfg.Tools),
		log:      log.With("component", "oracle"),
		threads:  make(map[string]*threadLock),
	}
}

// State returns the stored verdict for the thread.
func (o *LLMOracle) State(ctx context.Context, threadID string) (*Verdict, error) {
	return o.store.Verdict(ctx, threadID)
}

// Resolve runs the tool loop for threadID. Each tool intent is yielded
// before the tool runs. If the model never answers within the step limit
// the stream ends without a final step and no verdict is stored.
func (o *LLMOracle) Resolve(ctx context.Context, threadID string, messages []llm.Message) iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		unlock := o.lockThread(threadID)
		defer unlock()

		if err := o.begin(ctx, threadID, messages); err != nil {
			yield(Step{}, err)
			return
		}

		for step := 0; step <= o.cfg.MaxToolSteps; step++ {
			history, err := o.store.Messages(ctx, threadID, o.cfg.History)
			if err != nil {
				yield(Step{}, err)
				return
			}

			resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
				Model:       o.cfg.Model,
				Messages:    append([]llm.Message{{Role: llm.RoleSystem, Content: o.system}}, history...),
				MaxTokens:   defaultMaxTokens,
				Temperature: defaultTemperature,
				JSONMode:    true,
			})
			if err != nil {
				yield(Step{}, fmt.Errorf("reasoning step %d: %w", step, err))
				return
			}
			if err := o.store.Append(ctx, threadID, llm.Message{Role: llm.RoleAssistant, Content: resp.Content}); err != nil {
				yield(Step{}, err)
				return
			}

			d := parseDecision(resp.Content)
			if d.Action != actionTool {
				v := d.verdict()
				if err := o.store.SaveVerdict(ctx, threadID, v); err != nil {
					yield(Step{}, err)
					return
				}
				yield(Step{Final: &v}, nil)
				return
			}

			if step == o.cfg.MaxToolSteps {
				break
			}

			kind, ok := o.allowed(d.Tool)
			if !ok {
				o.log.Warn("model requested unknown tool", "thread", threadID, "tool", d.Tool)
				if err := o.store.Append(ctx, threadID, llm.Message{Role: llm.RoleUser, Content: unknownToolMessage(d.Tool, o.cfg.Tools)}); err != nil {
					yield(Step{}, err)
					return
				}
				continue
			}

			call := tools.Call{Kind: kind, Query: d.Query, MaxResults: d.MaxResults}
			if !yield(Step{Call: call}, nil) {
				return
			}

			result := o.runTool(ctx, call)
			if err := o.store.Append(ctx, threadID, llm.Message{Role: llm.RoleUser, Content: result}); err != nil {
				yield(Step{}, err)
				return
			}
		}
		o.log.Warn("tool step limit reached without an answer", "thread", threadID, "limit", o.cfg.MaxToolSteps)
	}
}

// begin opens the thread, clears its previous verdict and stores the new
// messages.
func (o *LLMOracle) begin(ctx context.Context, threadID string, messages []llm.Message) error {
	if err := o.store.EnsureThread(ctx, threadID); err != nil {
		return err
	}
	if err := o.store.ClearVerdict(ctx, threadID); err != nil {
		return err
	}
	return o.store.Append(ctx, threadID, messages...)
}

func (o *LLMOracle) runTool(ctx context.Context, call tools.Call) string {
	if o.runner == nil {
		return toolErrorMessage(call.Kind, fmt.Errorf("no tool runner configured"))
	}
	out, err := o.runner.Run(ctx, call)
	if err != nil {
		o.log.Warn("tool failed", "tool", call.Kind.Name(), "error", err)
		return toolErrorMessage(call.Kind, err)
	}
	return toolResultMessage(call.Kind, out)
}

func (o *LLMOracle) allowed(name string) (tools.Kind, bool) {
	kind, ok := tools.ParseKind(name)
	if !ok {
		return 0, false
	}
	for _, k := range o.cfg.Tools {
		if k == kind {
			return kind, true
		}
	}
	return 0, false
}

func (o *LLMOracle) lockThread(threadID string) func() {
	o.mu.Lock()
	l, ok := o.threads[threadID]
	if !ok {
		l = &threadLock{}
		o.threads[threadID] = l
	}
	l.refs++
	o.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.threads, threadID)
		}
		o.mu.Unlock()
	}
}

// lockedThreads reports how many threads currently hold or wait on a lock.
func (o *LLMOracle) lockedThreads() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.threads)
}

const (
	actionTool  = "tool"
	actionFinal = "final"
)

// decision is the JSON object the model replies with.
type decision struct {
	Action     string   `json:"action"`
	Tool       string   `json:"tool"`
	Query      string   `json:"query"`
	MaxResults int      `json:"max_results"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Confidence *float64 `json:"confidence"`
	Sources    []string `json:"sources"`
}

// parseDecision extracts the JSON object from a reply, which may be wrapped
// in a markdown code block. A reply that is not JSON is taken as a plain
// completed answer.
func parseDecision(content string) decision {
	jsonStr := content
	if idx := strings.Index(content, "{"); idx >= 0 {
		jsonStr = content[idx:]
	}
	if idx := strings.LastIndex(jsonStr, "}"); idx >= 0 {
		jsonStr = jsonStr[:idx+1]
	}

	var d decision
	if err := json.Unmarshal([]byte(jsonStr), &d); err != nil {
		return decision{Action: actionFinal, Status: string(agent.StatusCompleted), Message: strings.TrimSpace(content)}
	}
	if d.Action == "" {
		if d.Tool != "" {
			d.Action = actionTool
		} else {
			d.Action = actionFinal
		}
	}
	return d
}

func (d decision) verdict() Verdict {
	status := agent.Status(d.Status)
	if !status.Valid() {
		status = agent.StatusCompleted
	}
	confidence := 1.0
	if d.Confidence != nil {
		confidence = min(max(*d.Confidence, 0), 1)
	}
	sources := d.Sources
	if sources == nil {
		sources = []string{}
	}
	return Verdict{Status: status, Message: d.Message, Confidence: confidence, Sources: sources}
}
