package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/cache"
	"github.com/ziadkadry99/shopagent/internal/fallback"
	"github.com/ziadkadry99/shopagent/internal/llm"
	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/metrics"
	"github.com/ziadkadry99/shopagent/internal/oracle"
	"github.com/ziadkadry99/shopagent/internal/tools"
)

var tracer = otel.Tracer("shopagent/task")

const (
	// DefaultMaxContextLength bounds the raw query text.
	DefaultMaxContextLength = 4000

	startedMessage   = "Processing query..."
	noVerdictMessage = "The agent failed to generate a valid response."
	faultPrefix      = "Xin lỗi, đã xảy ra lỗi khi xử lý yêu cầu của bạn. Vui lòng thử lại sau."
	faultDetailLen   = 100
)

// Options configures an Executor. Only Oracle is required.
type Options struct {
	Oracle oracle.Oracle
	// Cache is consulted before reasoning and stores completed answers.
	// Nil disables caching.
	Cache    cache.Store
	CacheTTL time.Duration
	// Fallback escalates input_required answers. Nil disables escalation.
	Fallback         *fallback.Policy
	Metrics          *metrics.Recorder
	MaxContextLength int
	// ReasoningTimeout bounds one oracle run. Zero leaves it unbounded.
	ReasoningTimeout time.Duration
	Logger           logger.Logger
	Now              func() time.Time
}

// Executor runs tasks. Each task gets its own goroutine; the executor holds
// no per-task state.
type Executor struct {
	opts     Options
	validate *validator.Validate
	log      logger.Logger
}

// NewExecutor builds an Executor.
func NewExecutor(opts Options) (*Executor, error) {
	if opts.Oracle == nil {
		return nil, errors.New("task: oracle is required")
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	if opts.MaxContextLength <= 0 {
		opts.MaxContextLength = DefaultMaxContextLength
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRecorder()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Executor{opts: opts, validate: validator.New(), log: log.With("component", "task")}, nil
}

// Metrics returns the executor's recorder.
func (e *Executor) Metrics() *metrics.Recorder { return e.opts.Metrics }

// Submit validates req and starts a task for it. A request that fails
// validation returns ErrInvalidRequest and never reaches the oracle.
func (e *Executor) Submit(ctx context.Context, req agent.QueryRequest) (*Task, error) {
	e.opts.Metrics.RequestStarted()

	t := newTask(uuid.NewString(), req, e.opts.Now)
	t.setState(StateValidating)
	if err := e.validateRequest(req); err != nil {
		t.setState(StateFailed)
		e.opts.Metrics.RequestFailed()
		e.log.Warn("rejected request", "reason", err)
		return nil, err
	}

	go e.run(ctx, t)
	return t, nil
}

// Cancel always fails: an in-flight reasoning call cannot be interrupted.
func (e *Executor) Cancel(_ context.Context, taskID string) error {
	e.log.Info("task cancellation requested", "task", taskID)
	return fmt.Errorf("cancel task %s: %w", taskID, ErrUnsupportedOperation)
}

func (e *Executor) validateRequest(req agent.QueryRequest) error {
	if err := e.validate.Var(strings.TrimSpace(req.Text), "required,min=2"); err != nil {
		return fmt.Errorf("%w: query text must be at least 2 characters", ErrInvalidRequest)
	}
	if err := e.validate.Var(req.Text, fmt.Sprintf("max=%d", e.opts.MaxContextLength)); err != nil {
		return fmt.Errorf("%w: query text exceeds %d characters", ErrInvalidRequest, e.opts.MaxContextLength)
	}
	return nil
}

func (e *Executor) run(ctx context.Context, t *Task) {
	ctx, span := tracer.Start(ctx, "task.execute", trace.WithAttributes(
		attribute.String("task.id", t.ID),
		attribute.String("task.context_id", t.Request.ContextID),
	))
	defer span.End()

	log := e.log.With("task", t.ID)
	start := e.opts.Now()
	elapsed := func() time.Duration { return e.opts.Now().Sub(start) }

	t.setState(StateRetrieving)
	key := cache.Key(t.Request.Text, t.Request.CacheSession())
	if e.opts.Cache != nil {
		if cached, ok := e.opts.Cache.Get(ctx, key); ok {
			e.opts.Metrics.CacheHit()
			cached.FromCache = true
			cached.ProcessingTime = elapsed().Seconds()
			e.opts.Metrics.RequestSucceeded(elapsed())
			span.SetAttributes(attribute.Bool("task.from_cache", true))
			log.Debug("served from cache")
			t.finish(PhaseCompleted, StateCompleted, cached, nil)
			return
		}
		e.opts.Metrics.CacheMiss()
	}

	t.emit(Event{Phase: PhaseStarted, Content: startedMessage})
	t.setState(StateAwaitingReasoning)

	answer, err := e.reason(ctx, t)
	if err != nil {
		e.opts.Metrics.RequestFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, "reasoning failed")
		log.Error("reasoning failed", "error", err)

		answer.Status = agent.StatusInputRequired
		answer.Message = faultMessage(err)
		answer.Confidence = 0
		answer.Sources = []string{}
		answer.ProcessingTime = elapsed().Seconds()
		t.finish(PhaseInputRequired, StateInputRequired, answer, fmt.Errorf("%w: %w", ErrInternal, err))
		return
	}

	if e.opts.Fallback != nil {
		notify := func(k tools.Kind, content string) {
			t.emit(Event{Phase: PhaseToolInvoked, Tool: k.Name(), Content: content})
		}
		var outcome fallback.Outcome
		answer, outcome = e.opts.Fallback.Apply(ctx, t.Request.Text, answer, notify)
		if outcome == fallback.Escalated {
			e.opts.Metrics.Escalation()
			answer.ToolsUsed = addTool(answer.ToolsUsed, tools.WebSearch.Name())
		}
	}

	answer.FromCache = false
	answer.ProcessingTime = elapsed().Seconds()
	if answer.Status == agent.StatusCompleted && e.opts.Cache != nil {
		if !e.opts.Cache.Set(ctx, key, answer, e.opts.CacheTTL) {
			log.Warn("could not cache answer")
		}
	}
	e.opts.Metrics.RequestSucceeded(elapsed())
	span.SetAttributes(attribute.String("task.status", string(answer.Status)))

	if answer.Status == agent.StatusCompleted {
		t.finish(PhaseCompleted, StateCompleted, answer, nil)
		return
	}
	t.finish(PhaseInputRequired, StateInputRequired, answer, nil)
}

// reason drives the oracle and maps its verdict onto an answer. On error
// the returned answer still carries the tools observed so far.
func (e *Executor) reason(ctx context.Context, t *Task) (answer agent.Answer, err error) {
	if e.opts.ReasoningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ReasoningTimeout)
		defer cancel()
	}

	var used agent.ToolSet
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during reasoning: %v", r)
		}
		answer.ToolsUsed = used.Sorted()
	}()

	threadID := t.Request.ContextID
	if threadID == "" {
		threadID = t.ID
	}
	msgs := []llm.Message{{Role: llm.RoleUser, Content: t.Request.Text}}
	for step, stepErr := range e.opts.Oracle.Resolve(ctx, threadID, msgs) {
		if stepErr != nil {
			return answer, stepErr
		}
		if step.IsFinal() {
			continue
		}
		kind := step.Call.Kind
		used.Add(kind.Name())
		t.emit(Event{Phase: PhaseToolInvoked, Tool: kind.Name(), Content: kind.Phrase()})
	}

	verdict, err := e.opts.Oracle.State(ctx, threadID)
	if err != nil {
		return answer, fmt.Errorf("reading oracle state: %w", err)
	}
	return fromVerdict(verdict), nil
}

// fromVerdict maps the oracle's verdict onto an answer. error verdicts keep
// their message but lose confidence and sources.
func fromVerdict(v *oracle.Verdict) agent.Answer {
	if v == nil {
		return agent.Answer{Status: agent.StatusError, Message: noVerdictMessage, Sources: []string{}}
	}
	sources := append([]string{}, v.Sources...)
	switch v.Status {
	case agent.StatusCompleted, agent.StatusInputRequired:
		return agent.Answer{Status: v.Status, Message: v.Message, Confidence: v.Confidence, Sources: sources}
	default:
		return agent.Answer{Status: agent.StatusError, Message: v.Message, Sources: []string{}}
	}
}

func faultMessage(err error) string {
	detail := []rune(err.Error())
	if len(detail) > faultDetailLen {
		detail = detail[:faultDetailLen]
	}
	return fmt.Sprintf("%s (Error: %s)", faultPrefix, string(detail))
}

func addTool(used []string, name string) []string {
	var set agent.ToolSet
	for _, u := range used {
		set.Add(u)
	}
	set.Add(name)
	return set.Sorted()
}
