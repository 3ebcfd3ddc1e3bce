package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/reactloop/core"
)

// ErrTransport is matched (via errors.Is) by every backend failure.
var ErrTransport = errors.New("model backend transport failure")

// Error reports a failed backend call. Provider names the backend, Op the
// operation ("chat", "generate", ...).
type Error struct {
	Provider string
	Op       string
	Status   int // HTTP status when known, 0 otherwise
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s call failed (status %d): %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s call failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrTransport.
func (e *Error) Is(target error) bool { return target == ErrTransport }

// NewError wraps err as a transport failure of provider/op.
func NewError(provider, op string, err error) *Error {
	return &Error{Provider: provider, Op: op, Err: err}
}

// GenerationOptions carries per-request generation parameters.
type GenerationOptions struct {
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultGenerationOptions mirrors the reference loop: temperature 0.2,
// 300 output tokens, 60s per call.
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{Temperature: 0.2, MaxTokens: 300, Timeout: 60 * time.Second}
}

// Request captures the normalized model input.
type Request struct {
	Turns   []core.Turn       `json:"turns"`
	Options GenerationOptions `json:"options"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "ollama", "openai", "anthropic", "scripted"
}

// Model is the minimal interface the agent loop needs to drive generation.
// Complete must return an error matching ErrTransport on any failure.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Func adapts a plain function to Model.
type Func func(ctx context.Context, req Request) (string, error)

// Complete implements Model.
func (f Func) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Info implements Model.
func (Func) Info() Info { return Info{Name: "func", Provider: "func"} }

// WithTimeout derives the per-call context for opts.Timeout (no-op when zero).
func WithTimeout(ctx context.Context, opts GenerationOptions) (context.Context, context.CancelFunc) {
	if opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, opts.Timeout)
}

// ScriptedModel replies with a fixed sequence of outputs, one per call. It
// records every request so tests can assert on the transcript the loop sent.
// Once the script is exhausted the last reply repeats; an empty script
// returns a transport error.
type ScriptedModel struct {
	mu       sync.Mutex
	replies  []string
	errs     map[int]error
	requests []Request
}

// NewScriptedModel constructs a ScriptedModel.
func NewScriptedModel(replies ...string) *ScriptedModel {
	return &ScriptedModel{replies: replies, errs: map[int]error{}}
}

// FailOn makes the n-th call (1-based) fail with err wrapped as a transport error.
func (m *ScriptedModel) FailOn(n int, err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[n] = err
	return m
}

// Complete implements Model.
func (m *ScriptedModel) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := make([]core.Turn, len(req.Turns))
	copy(turns, req.Turns)
	m.requests = append(m.requests, Request{Turns: turns, Options: req.Options})
	n := len(m.requests)

	if err := ctx.Err(); err != nil {
		return "", NewError("scripted", "chat", err)
	}
	if err, ok := m.errs[n]; ok {
		return "", NewError("scripted", "chat", err)
	}
	if len(m.replies) == 0 {
		return "", NewError("scripted", "chat", errors.New("no scripted replies"))
	}
	idx := min(n-1, len(m.replies)-1)
	return m.replies[idx], nil
}

// Calls returns how many times Complete was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return Info{Name: "scripted", Provider: "scripted"} }
