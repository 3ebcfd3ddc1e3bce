package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/logging"
)

// ErrDuplicateTool is returned by NewRegistry when two tools share a name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// DefaultCallTimeout bounds a single tool call at the registry boundary.
const DefaultCallTimeout = 10 * time.Second

// Result is the outcome of Registry.Invoke. Observation is always set;
// Executed reports whether a tool actually ran (successfully or not).
type Result struct {
	Observation string
	Executed    bool
	Err         error
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// CallTimeout bounds each tool call. Zero disables the timeout.
	CallTimeout time.Duration
	// Logger receives tool call records (defaults to NoOp).
	Logger logging.Logger
}

// Registry is an immutable name -> Tool mapping. It is built once and is safe
// to share between concurrently running sessions.
type Registry struct {
	tools   map[string]Tool
	names   []string
	timeout time.Duration
	logger  logging.Logger
}

// NewRegistry builds a registry from tools. Tool names must be unique and non-empty.
func NewRegistry(tools []Tool, optFns ...func(o *RegistryOptions)) (*Registry, error) {
	opts := RegistryOptions{
		CallTimeout: DefaultCallTimeout,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Registry{
		tools:   make(map[string]Tool, len(tools)),
		names:   make([]string, 0, len(tools)),
		timeout: opts.CallTimeout,
		logger:  logging.OrNoOp(opts.Logger),
	}
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return nil, errors.New("tool name must not be empty")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		r.tools[name] = t
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. Intended for static tables.
func MustRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve looks a tool up by name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Describe renders one line per tool for inclusion in a system prompt.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.names {
		t := r.tools[name]
		fmt.Fprintf(&b, "- %s(%s): %s\n", name, strings.Join(argNames(t.Parameters()), ", "), t.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Invoke resolves and runs the action's tool. It never returns an error:
// unknown tools, validation failures, execution errors and timeouts all
// become observation text so the conversation can continue.
func (r *Registry) Invoke(ctx context.Context, action core.ParsedAction) Result {
	t, ok := r.Resolve(action.ToolName)
	if !ok {
		err := NewToolError(action.ToolName, "tool not registered", CodeNotFound)
		r.logger.Warn("tool.resolve.not_found", "tool", action.ToolName)
		return Result{Observation: fmt.Sprintf("tool '%s' not available.", action.ToolName), Err: err}
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := action.Arguments
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	out, err := r.call(callCtx, t, args)
	dur := time.Since(start)
	if err != nil {
		r.logger.Error("tool.call.error", "tool", t.Name(), "duration_ms", dur.Milliseconds(), "error", err.Error())
		return Result{Observation: fmt.Sprintf("tool '%s' failed: %s", t.Name(), failureMessage(err)), Executed: true, Err: err}
	}

	r.logger.Info("tool.call.success", "tool", t.Name(), "duration_ms", dur.Milliseconds())
	return Result{Observation: out, Executed: true}
}

type callResult struct {
	out string
	err error
}

// call runs the tool in its own goroutine so that a tool ignoring ctx cannot
// hold the session past the registry timeout.
func (r *Registry) call(ctx context.Context, t Tool, args map[string]any) (string, error) {
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- callResult{err: NewToolError(t.Name(), fmt.Sprintf("panic: %v", p), CodeExecution)}
			}
		}()
		out, err := t.Call(ctx, args)
		done <- callResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return "", NewToolError(t.Name(), "timed out", CodeTimeout)
		}
		return res.out, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", NewToolError(t.Name(), "timed out", CodeTimeout)
		}
		return "", ctx.Err()
	}
}

func failureMessage(err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Message
	}
	return err.Error()
}

func argNames(schema map[string]any) []string {
	props, _ := schema["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
