package warmup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/logging"
	"github.com/hupe1980/reactloop/model"
	"golang.org/x/sync/errgroup"
)

// Backend is what warm-up tasks call into.
type Backend interface {
	model.Model
	Generate(ctx context.Context, prompt string, opts model.GenerationOptions) (string, error)
}

// FromModel adapts any model.Model to Backend by sending prompts as a single
// user turn.
func FromModel(m model.Model) Backend {
	if b, ok := m.(Backend); ok {
		return b
	}
	return promptAdapter{m}
}

type promptAdapter struct{ model.Model }

func (p promptAdapter) Generate(ctx context.Context, prompt string, opts model.GenerationOptions) (string, error) {
	return p.Complete(ctx, model.Request{Turns: []core.Turn{core.UserTurn(prompt)}, Options: opts})
}

// Task is one warm-up unit.
type Task struct {
	Name string
	Run  func(ctx context.Context, b Backend) error
}

// TaskResult records the outcome of one task.
type TaskResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Err     string        `json:"error,omitempty"`
}

// Report aggregates task results in task order.
type Report struct {
	Model   string        `json:"model"`
	Results []TaskResult  `json:"results"`
	Elapsed time.Duration `json:"elapsed"`
}

// Failed returns the results of failed tasks.
func (r Report) Failed() []TaskResult {
	var out []TaskResult
	for _, res := range r.Results {
		if !res.OK {
			out = append(out, res)
		}
	}
	return out
}

// Average returns the mean latency of successful tasks.
func (r Report) Average() time.Duration {
	var sum time.Duration
	n := 0
	for _, res := range r.Results {
		if res.OK {
			sum += res.Latency
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

// String renders one line per task plus a summary.
func (r Report) String() string {
	var b strings.Builder
	for _, res := range r.Results {
		if res.OK {
			fmt.Fprintf(&b, "ok   %-12s %s\n", res.Name, res.Latency.Round(time.Millisecond))
		} else {
			fmt.Fprintf(&b, "FAIL %-12s %s\n", res.Name, res.Err)
		}
	}
	fmt.Fprintf(&b, "%s: %d/%d ok, avg %s, total %s",
		r.Model, len(r.Results)-len(r.Failed()), len(r.Results),
		r.Average().Round(time.Millisecond), r.Elapsed.Round(time.Millisecond))
	return b.String()
}

// Options configures a Pool.
type Options struct {
	// Workers caps concurrent calls.
	Workers int
	// Timeout bounds each task.
	Timeout time.Duration
	Logger  logging.Logger
}

// Pool runs warm-up tasks with a fixed number of workers.
type Pool struct {
	workers int
	timeout time.Duration
	logger  logging.Logger
}

// NewPool creates a pool; defaults are 3 workers and a 120s per-task timeout.
func NewPool(optFns ...func(o *Options)) *Pool {
	opts := Options{Workers: 3, Timeout: 120 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pool{workers: opts.Workers, timeout: opts.Timeout, logger: logging.OrNoOp(opts.Logger)}
}

// Run executes tasks against b. Task failures never abort the batch; only
// ctx cancellation stops scheduling of the remaining tasks.
func (p *Pool) Run(ctx context.Context, b Backend, tasks []Task) (Report, error) {
	start := time.Now()
	results := make([]TaskResult, len(tasks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, task := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := p.runTask(gctx, b, task)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Model: b.Info().Name, Elapsed: time.Since(start)}
	for i, res := range results {
		if res.Name == "" {
			res = TaskResult{Name: tasks[i].Name, Err: "not started"}
		}
		rep.Results = append(rep.Results, res)
	}
	return rep, ctx.Err()
}

func (p *Pool) runTask(ctx context.Context, b Backend, task Task) TaskResult {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	t0 := time.Now()
	err := task.Run(ctx, b)
	res := TaskResult{Name: task.Name, OK: err == nil, Latency: time.Since(t0)}
	if err != nil {
		res.Err = err.Error()
		p.logger.Warn("warmup task failed", "task", task.Name, "error", res.Err)
		return res
	}
	p.logger.Info("warmup task done", "task", task.Name, "latency", res.Latency)
	return res
}
