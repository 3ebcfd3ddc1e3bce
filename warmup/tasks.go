package warmup

import (
	"context"
	"fmt"

	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/model"
)

// warmOptions keeps warm-up replies short and deterministic.
var warmOptions = model.GenerationOptions{Temperature: 0, MaxTokens: 50}

// Prompts representative of the agent's workloads.
var (
	BasicPrompt    = "You are a helpful assistant. Respond with: I am ready."
	PatternPrompts = []string{
		"You are a weather assistant with access to tools.\nUser asks: What's the weather in Paris?\nRespond with the tool you would call.",
		"Calculate 25 * 18 and explain the result.",
		"Previous conversation: User asked about USD to EUR conversion.\nNow user asks: Convert 200.\nRemember the previous currency pair.",
	}
	JSONPrompt = "Respond with a JSON object containing your readiness status.\n\nRespond with valid JSON: {\"status\": \"ready\"}"
)

// Basic loads the model with a single generation.
func Basic() Task {
	return Task{Name: "basic", Run: func(ctx context.Context, b Backend) error {
		_, err := b.Generate(ctx, BasicPrompt, warmOptions)
		return err
	}}
}

// Chat exercises the multi-turn chat path.
func Chat() Task {
	return Task{Name: "chat", Run: func(ctx context.Context, b Backend) error {
		_, err := b.Complete(ctx, model.Request{
			Turns:   []core.Turn{core.SystemTurn("You are a helpful assistant."), core.UserTurn("Hello, are you ready?")},
			Options: warmOptions,
		})
		return err
	}}
}

// JSON exercises structured-output prompts.
func JSON() Task {
	return Task{Name: "json", Run: func(ctx context.Context, b Backend) error {
		_, err := b.Generate(ctx, JSONPrompt, warmOptions)
		return err
	}}
}

// Patterns runs the representative prompts one after another and fails on
// the first error.
func Patterns() Task {
	return Task{Name: "patterns", Run: func(ctx context.Context, b Backend) error {
		for i, p := range PatternPrompts {
			if _, err := b.Generate(ctx, p, warmOptions); err != nil {
				return fmt.Errorf("pattern %d: %w", i+1, err)
			}
		}
		return nil
	}}
}

// Parallel returns reps identical basic calls meant to run concurrently.
func Parallel(reps int) []Task {
	tasks := make([]Task, 0, reps)
	for i := 1; i <= reps; i++ {
		t := Basic()
		t.Name = fmt.Sprintf("parallel-%d", i)
		tasks = append(tasks, t)
	}
	return tasks
}

// Default returns the standard warm-up batch.
func Default(reps int) []Task {
	return append([]Task{Basic(), Chat(), JSON(), Patterns()}, Parallel(reps)...)
}
