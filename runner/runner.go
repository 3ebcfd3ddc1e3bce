package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/hupe1980/reactloop/agent"
	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/logging"
	"github.com/hupe1980/reactloop/session"
)

// Agent is the subset of *agent.Agent the runner needs.
type Agent interface {
	Run(ctx context.Context, input string) (*agent.Result, error)
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Store receives one record per finished session.
	Store session.Store
	// Output receives the human-readable transcript (answers, summaries).
	Output io.Writer
	// Prompt is written before each read. Empty disables it.
	Prompt string
	// Summary appends a budget line after each answer.
	Summary bool
	// Replies prints every assistant reply as it arrives. The agent must
	// forward its turns to Runner.Observe. The final answer is then printed
	// only when it differs from the last reply (budget exhaustion).
	Replies bool
	Logger  logging.Logger
}

// Runner coordinates the read/run/print cycle. Sessions run one at a time.
type Runner struct {
	agent  Agent
	store  session.Store
	out    io.Writer
	prompt string
	sum    bool
	echo   bool
	logger logging.Logger

	lastReply string
}

// New constructs a Runner with optional overrides.
func New(a Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Store:   session.NewInMemoryStore(100),
		Output:  os.Stdout,
		Prompt:  "> ",
		Summary: true,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{
		agent:  a,
		store:  opts.Store,
		out:    opts.Output,
		prompt: opts.Prompt,
		sum:    opts.Summary,
		echo:   opts.Replies,
		logger: logging.OrNoOp(opts.Logger),
	}
}

// Store returns the session store the runner records into.
func (r *Runner) Store() session.Store { return r.store }

// Observe receives the agent's turns and prints assistant replies when
// Options.Replies is set. Pass it as the agent's OnTurn hook.
func (r *Runner) Observe(t core.Turn) {
	if !r.echo || t.Role != core.RoleAssistant {
		return
	}
	fmt.Fprintln(r.out, t.Content)
	r.lastReply = t.Content
}

// Ask runs a single session for input and records it.
func (r *Runner) Ask(ctx context.Context, input string) (*agent.Result, error) {
	r.lastReply = ""
	start := time.Now()
	res, err := r.agent.Run(ctx, input)

	rec := session.NewRecord(input, start, res, err)
	if saveErr := r.store.Save(rec); saveErr != nil {
		r.logger.Warn("session record not saved", "session_id", rec.ID, "error", saveErr.Error())
	}
	return res, err
}

// Serve reads inputs from src until exit/quit, EOF or cancellation. Each
// input starts a fresh session. Transport failures are reported and the
// runner moves on to the next input; cancellation ends Serve.
func (r *Runner) Serve(ctx context.Context, src InputSource) error {
	for {
		if r.prompt != "" {
			fmt.Fprint(r.out, r.prompt)
		}
		input, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if IsExit(input) {
			return nil
		}
		if input == "" {
			continue
		}

		res, err := r.Ask(ctx, input)
		switch {
		case errors.Is(err, agent.ErrAborted), errors.Is(err, context.Canceled):
			return err
		case err != nil:
			r.logger.Error("session failed", "error", err.Error())
			fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		r.print(res)
	}
}

func (r *Runner) print(res *agent.Result) {
	if !r.echo || res.FinalAnswer != r.lastReply {
		fmt.Fprintln(r.out, res.FinalAnswer)
	}
	if !r.sum {
		return
	}
	b := res.Budget
	steps := b.StepsTaken
	if b.StepLimit >= 0 {
		// the denied step that ended an exhausted run is counted but never ran
		steps = min(steps, b.StepLimit)
	}
	fmt.Fprintf(r.out, "[%s] steps %d/%s, tool calls %d/%s\n",
		res.Outcome, steps, limit(b.StepLimit), b.ToolCallsMade, limit(b.ToolCallLimit))
}

func limit(n int) string {
	if n < 0 {
		return "unlimited"
	}
	return strconv.Itoa(n)
}
