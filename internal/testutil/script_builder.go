package testutil

import (
	"fmt"
	"strings"

	"github.com/hupe1980/reactloop/model"
)

// ScriptBuilder assembles the replies of a scripted model with fluent chaining.
// Example:
//
//	m := NewScript().Action("weather", "location", "Paris").Final("rainy").Build()
type ScriptBuilder struct {
	replies []string
}

// NewScript creates an empty ScriptBuilder.
func NewScript() *ScriptBuilder { return &ScriptBuilder{} }

// Action appends a reply requesting tool with alternating key/value pairs
// rendered as double-quoted arguments.
func (b *ScriptBuilder) Action(tool string, kv ...string) *ScriptBuilder {
	args := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args = append(args, fmt.Sprintf("%s=%q", kv[i], kv[i+1]))
	}
	b.replies = append(b.replies, fmt.Sprintf("Thought: I should use %s.\nAction: %s(%s)", tool, tool, strings.Join(args, ", ")))
	return b
}

// Think appends a reply without action or terminal marker.
func (b *ScriptBuilder) Think(text string) *ScriptBuilder {
	b.replies = append(b.replies, "Thought: "+text)
	return b
}

// Final appends a reply carrying the "Final:" marker.
func (b *ScriptBuilder) Final(answer string) *ScriptBuilder {
	b.replies = append(b.replies, "Final: "+answer)
	return b
}

// Raw appends a reply verbatim.
func (b *ScriptBuilder) Raw(text string) *ScriptBuilder {
	b.replies = append(b.replies, text)
	return b
}

// Replies returns the accumulated replies.
func (b *ScriptBuilder) Replies() []string {
	out := make([]string, len(b.replies))
	copy(out, b.replies)
	return out
}

// Build returns a ScriptedModel replaying the accumulated replies.
func (b *ScriptBuilder) Build() *model.ScriptedModel {
	return model.NewScriptedModel(b.Replies()...)
}
