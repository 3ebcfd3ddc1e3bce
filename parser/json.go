package parser

import (
	"encoding/json"
	"strings"

	"github.com/hupe1980/reactloop/core"
)

// JSONParser is a stricter grammar for models that can emit structured output:
//
//	Action: {"tool": "weather", "arguments": {"location": "Paris"}}
//
// The JSON object must sit on the action line. Malformed JSON yields no action.
type JSONParser struct{}

type jsonAction struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Parse implements Parser.
func (JSONParser) Parse(text string) (*core.ParsedAction, bool) {
	for _, line := range strings.Split(text, "\n") {
		idx := strings.Index(line, "Action:")
		if idx < 0 {
			continue
		}
		payload := strings.TrimSpace(line[idx+len("Action:"):])
		if !strings.HasPrefix(payload, "{") {
			continue
		}
		var act jsonAction
		if err := json.Unmarshal([]byte(payload), &act); err != nil || act.Tool == "" {
			return nil, false
		}
		if act.Arguments == nil {
			act.Arguments = map[string]any{}
		}
		return &core.ParsedAction{ToolName: act.Tool, Arguments: act.Arguments}, true
	}
	return nil, false
}
