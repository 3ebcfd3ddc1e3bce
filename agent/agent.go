package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/logging"
	"github.com/hupe1980/reactloop/model"
	"github.com/hupe1980/reactloop/parser"
	"github.com/hupe1980/reactloop/tool"
)

// Observation texts appended by the loop itself.
const (
	NoActionObservation          = "(no tool call parsed). Provide Final if possible."
	UnboundedNoActionObservation = "(no tool call parsed). Continue."
	ToolBudgetObservation        = "Tool-call budget exceeded. Provide Final using what you have."
	FinalizeObservation          = "Step budget reached. Provide Final now using what you have."

	// ExhaustedAnswer is the final answer of a run that ran out of steps.
	ExhaustedAnswer = "Final: I'm stopping because the step budget was reached."

	DefaultTerminalMarker = "Final:"
)

// Options configures an Agent.
type Options struct {
	StepLimit     int
	ToolCallLimit int
	Temperature   float64
	MaxTokens     int
	// Timeout bounds each backend call. Expiry surfaces as a transport failure.
	Timeout        time.Duration
	TerminalMarker string
	Instruction    Instruction
	Parser         parser.Parser
	Logger         *logging.LoopLogger

	// FinalizeOnExhaustion grants one extra model call after the step budget
	// runs out, asking for a final answer. The outcome stays
	// OutcomeBudgetExhausted.
	FinalizeOnExhaustion bool

	OnTurn       func(core.Turn)
	OnTransition func(from, to State)
}

// Result describes a finished (or aborted) run.
type Result struct {
	SessionID      string
	Outcome        Outcome
	FinalAnswer    string
	Conversation   []core.Turn
	Budget         core.BudgetState
	ToolExecutions int
	Duration       time.Duration
}

// Agent runs budgeted ReAct sessions against a model and a tool registry.
// An Agent holds no per-run state and may serve concurrent Run calls.
type Agent struct {
	model     model.Model
	registry  *tool.Registry
	opts      Options
	unbounded bool
}

// New creates a budgeted agent with the reference defaults: 6 steps, 2 tool
// calls, temperature 0.2, 300 tokens and the "Final:" marker.
func New(m model.Model, registry *tool.Registry, optFns ...func(o *Options)) (*Agent, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := validate(m, registry, opts, false); err != nil {
		return nil, err
	}
	return &Agent{model: m, registry: registry, opts: opts}, nil
}

// NewUnbounded creates the unbudgeted sibling. StepLimit, ToolCallLimit and
// FinalizeOnExhaustion are ignored.
func NewUnbounded(m model.Model, registry *tool.Registry, optFns ...func(o *Options)) (*Agent, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.StepLimit, opts.ToolCallLimit, opts.FinalizeOnExhaustion = core.Unlimited, core.Unlimited, false
	if err := validate(m, registry, opts, true); err != nil {
		return nil, err
	}
	return &Agent{model: m, registry: registry, opts: opts, unbounded: true}, nil
}

func defaultOptions() Options {
	gen := model.DefaultGenerationOptions()
	return Options{
		StepLimit:      core.DefaultStepLimit,
		ToolCallLimit:  core.DefaultToolCallLimit,
		Temperature:    gen.Temperature,
		MaxTokens:      gen.MaxTokens,
		Timeout:        gen.Timeout,
		TerminalMarker: DefaultTerminalMarker,
		Instruction:    NewInstructionFromText(DefaultInstruction),
	}
}

func validate(m model.Model, registry *tool.Registry, opts Options, unbounded bool) error {
	switch {
	case m == nil:
		return fmt.Errorf("%w: model is required", ErrInvalidOptions)
	case registry == nil:
		return fmt.Errorf("%w: tool registry is required", ErrInvalidOptions)
	case strings.TrimSpace(opts.TerminalMarker) == "":
		return fmt.Errorf("%w: terminal marker must not be empty", ErrInvalidOptions)
	case !unbounded && opts.StepLimit < 1:
		return fmt.Errorf("%w: step limit must be >= 1, got %d", ErrInvalidOptions, opts.StepLimit)
	case !unbounded && opts.ToolCallLimit < 0:
		return fmt.Errorf("%w: tool call limit must be >= 0, got %d", ErrInvalidOptions, opts.ToolCallLimit)
	}
	return nil
}

// Unbounded reports whether the agent was built by NewUnbounded.
func (a *Agent) Unbounded() bool { return a.unbounded }

// Options returns a copy of the effective options.
func (a *Agent) Options() Options { return a.opts }

// run holds the state of one session. It is confined to a single goroutine.
type run struct {
	*Agent
	ctx    context.Context
	id     string
	budget *core.Budget
	conv   *core.Conversation
	state  State
	execs  int
	log    *logging.LoopLogger
	start  time.Time
}

// Run drives one session for userInput until the terminal marker appears or
// the step budget is exhausted. Backend failures return a *TransportError and
// cancellation between steps returns an error matching ErrAborted; both come
// with the partial Result.
func (a *Agent) Run(ctx context.Context, userInput string) (*Result, error) {
	r := &run{
		Agent:  a,
		ctx:    ctx,
		id:     core.NewID(),
		budget: core.NewBudget(a.opts.StepLimit, a.opts.ToolCallLimit),
		conv:   core.NewConversation(),
		state:  StateAwaitingModel,
		start:  time.Now(),
	}
	base := a.opts.Logger
	if base == nil {
		base = logging.Discard()
	}
	r.log = base.WithComponent("agent").WithSession(r.id)

	system, err := a.opts.Instruction.Resolve(ctx, a.promptData())
	if err != nil {
		return nil, fmt.Errorf("resolve instruction: %w", err)
	}
	if system != "" {
		r.append(core.SystemTurn(system))
	}
	r.append(core.UserTurn(userInput))

	res, err := r.loop()
	if err != nil {
		r.log.LogSession("aborted", res.Budget.StepsTaken, res.ToolExecutions, res.Duration, err)
		return res, err
	}
	r.log.LogSession(string(res.Outcome), res.Budget.StepsTaken, res.ToolExecutions, res.Duration, nil)
	return res, nil
}

func (a *Agent) promptData() PromptData {
	return PromptData{
		Tools:          a.registry.Describe(),
		ToolNames:      a.registry.Names(),
		TerminalMarker: a.opts.TerminalMarker,
		StepLimit:      a.opts.StepLimit,
		ToolCallLimit:  a.opts.ToolCallLimit,
	}
}

func (r *run) loop() (*Result, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return r.result(""), fmt.Errorf("%w: %w", ErrAborted, err)
		}
		if !r.budget.AdmitStep() {
			r.transition(StateBudgetExhausted)
			return r.exhausted()
		}

		reply, err := r.complete()
		if err != nil {
			return r.result(""), err
		}
		r.append(core.AssistantTurn(reply))
		r.transition(StateParsing)

		if strings.Contains(reply, r.opts.TerminalMarker) {
			r.transition(StateTerminal)
			r.transition(StateDone)
			res := r.result(OutcomeCompleted)
			res.FinalAnswer = reply
			return res, nil
		}

		r.act(reply)
		r.transition(StateAwaitingModel)
	}
}

// act parses reply and appends exactly one observation.
func (r *run) act(reply string) {
	action, ok := r.parser().Parse(reply)
	if !ok {
		r.transition(StateNoAction)
		if r.unbounded {
			r.observe(UnboundedNoActionObservation)
		} else {
			r.observe(NoActionObservation)
		}
		return
	}

	if !r.budget.CanCallTool() {
		r.transition(StateToolDenied)
		r.log.Warn("tool call denied", "tool", action.ToolName, "reason", "budget")
		r.observe(ToolBudgetObservation)
		return
	}

	// Unknown tools are refused by the registry's allow-list without
	// consuming tool-call budget.
	if _, known := r.registry.Resolve(action.ToolName); !known {
		r.transition(StateToolDenied)
		r.observe(r.registry.Invoke(r.ctx, *action).Observation)
		return
	}

	r.budget.AdmitToolCall()
	r.transition(StateToolAdmitted)
	start := time.Now()
	result := r.registry.Invoke(r.ctx, *action)
	if result.Executed {
		r.execs++
	}
	r.log.LogToolCall(action.ToolName, time.Since(start), result.Err == nil, result.Err)
	r.observe(result.Observation)
}

func (r *run) exhausted() (*Result, error) {
	res := r.result(OutcomeBudgetExhausted)
	res.FinalAnswer = ExhaustedAnswer
	if !r.opts.FinalizeOnExhaustion {
		r.log.Warn("step budget exhausted", "steps", r.opts.StepLimit)
		return res, nil
	}
	if err := r.ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	r.observe(FinalizeObservation)
	reply, err := r.complete()
	if err != nil {
		return r.result(OutcomeBudgetExhausted), err
	}
	r.append(core.AssistantTurn(reply))

	res = r.result(OutcomeBudgetExhausted)
	res.FinalAnswer = ExhaustedAnswer
	if strings.Contains(reply, r.opts.TerminalMarker) {
		res.FinalAnswer = reply
	}
	return res, nil
}

func (r *run) complete() (string, error) {
	step := r.budget.State().StepsTaken
	info := r.model.Info()
	start := time.Now()
	reply, err := r.model.Complete(r.ctx, model.Request{
		Turns: r.conv.Snapshot(),
		Options: model.GenerationOptions{
			Temperature: r.opts.Temperature,
			MaxTokens:   r.opts.MaxTokens,
			Timeout:     r.opts.Timeout,
		},
	})
	r.log.LogModelCall(info.Name, step, time.Since(start), err == nil, err)
	if err != nil {
		if !errors.Is(err, model.ErrTransport) {
			err = model.NewError(info.Provider, "complete", err)
		}
		return "", &TransportError{Step: step, Err: err}
	}
	return reply, nil
}

func (r *run) parser() parser.Parser {
	if r.opts.Parser != nil {
		return r.opts.Parser
	}
	return parser.NewRegexParser()
}

func (r *run) append(t core.Turn) {
	r.conv.Append(t)
	if r.opts.OnTurn != nil {
		r.opts.OnTurn(t)
	}
}

func (r *run) observe(text string) {
	r.append(core.ObservationTurn(text))
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.log.Debug("state transition", "from", from.String(), "to", to.String())
	if r.opts.OnTransition != nil {
		r.opts.OnTransition(from, to)
	}
}

func (r *run) result(outcome Outcome) *Result {
	return &Result{
		SessionID:      r.id,
		Outcome:        outcome,
		Conversation:   r.conv.Snapshot(),
		Budget:         r.budget.State(),
		ToolExecutions: r.execs,
		Duration:       time.Since(r.start),
	}
}
