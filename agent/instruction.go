package agent

import (
	"context"

	"github.com/hupe1980/reactloop/internal/util"
)

// PromptData is the template data available to an Instruction.
type PromptData struct {
	Tools          string   // one line per tool, from Registry.Describe
	ToolNames      []string // sorted
	TerminalMarker string
	StepLimit      int
	ToolCallLimit  int
}

func (d PromptData) asMap() map[string]any {
	return map[string]any{
		"tools":           d.Tools,
		"tool_names":      d.ToolNames,
		"marker":          d.TerminalMarker,
		"step_limit":      d.StepLimit,
		"tool_call_limit": d.ToolCallLimit,
	}
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(ctx context.Context, data PromptData) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(ctx context.Context, data PromptData) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ctx context.Context, data PromptData) (string, error) { return f(ctx, data) }

// Instruction is either a static template string or a dynamic provider.
// Static text is rendered as a text/template with the PromptData keys
// tools, tool_names, marker, step_limit and tool_call_limit.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, data PromptData) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ctx context.Context, data PromptData) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, data)
	}
	return util.RenderTemplate(i.text, data.asMap())
}

// DefaultInstruction is the ReAct prompt used when Options.Instruction is unset.
const DefaultInstruction = `You are a helpful assistant that solves tasks step by step.
You can use these tools:
{{.tools}}

To use a tool, reply with exactly one line of the form:
Action: tool_name(key="value")
You will then receive a line starting with "Observation:" holding the result.
When you can answer, reply with a line starting with "{{.marker}}" followed by the answer.`
