package testutil

import (
	"context"
	"sync"
)

// CountingTool is a tool.Tool that records every call and returns a fixed
// reply (or error).
type CountingTool struct {
	name  string
	reply string
	err   error

	mu    sync.Mutex
	calls []map[string]any
}

// NewCountingTool creates a CountingTool answering reply.
func NewCountingTool(name, reply string) *CountingTool {
	return &CountingTool{name: name, reply: reply}
}

// Failing makes every call return err.
func (t *CountingTool) Failing(err error) *CountingTool {
	t.err = err
	return t
}

// Name implements tool.Tool.
func (t *CountingTool) Name() string { return t.name }

// Description implements tool.Tool.
func (t *CountingTool) Description() string { return "counts its calls" }

// Parameters implements tool.Tool.
func (t *CountingTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// Call implements tool.Tool.
func (t *CountingTool) Call(_ context.Context, args map[string]any) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, args)
	if t.err != nil {
		return "", t.err
	}
	return t.reply, nil
}

// Calls returns how many times Call ran.
func (t *CountingTool) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// Args returns the arguments of the n-th call (0-based).
func (t *CountingTool) Args(n int) map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[n]
}
