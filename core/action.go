package core

import (
	"fmt"
	"sort"
	"strings"
)

// ParsedAction is a tool invocation recognized in model output.
type ParsedAction struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// String renders the action in the same shape models are asked to emit.
func (a ParsedAction) String() string {
	keys := make([]string, 0, len(a.Arguments))
	for k := range a.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, fmt.Sprintf("%s=%q", k, fmt.Sprint(a.Arguments[k])))
	}
	return fmt.Sprintf("%s(%s)", a.ToolName, strings.Join(args, ", "))
}

// StringArg returns a string argument or def when the key is missing or not
// a non-empty string.
func (a ParsedAction) StringArg(key, def string) string {
	if v, ok := a.Arguments[key].(string); ok && v != "" {
		return v
	}
	return def
}
