// Package parser extracts tool invocations from free-form model output.
//
// Parsing is best effort: a Parser never fails with an error. Text without a
// recognizable action yields (nil, false), which the agent loop treats as
// "no tool call this turn".
package parser

import (
	"regexp"
	"strings"

	"github.com/hupe1980/reactloop/core"
)

// Parser turns assistant text into a ParsedAction.
type Parser interface {
	Parse(text string) (*core.ParsedAction, bool)
}

// Func is a functional adapter to allow ordinary functions to be used as Parsers.
type Func func(text string) (*core.ParsedAction, bool)

// Parse implements Parser.
func (f Func) Parse(text string) (*core.ParsedAction, bool) { return f(text) }

var (
	actionHead = regexp.MustCompile(`Action:\s*(\w+)\(`)
	argPair    = regexp.MustCompile(`(\w+)\s*=\s*(?:'([^']*)'|"([^"]*)")`)
)

// RegexParser recognizes lines of the form
//
//	Action: tool_name(key="value", other='value')
//
// Only the first line carrying an action is considered. The parentheses on
// that line must balance; quoted values may contain parentheses.
type RegexParser struct {
	allowed map[string]struct{}
}

// Option configures a RegexParser.
type Option func(*RegexParser)

// WithAllowedKeys restricts argument extraction to the named keys. Any other
// key is silently dropped. WithAllowedKeys("location") reproduces the
// narrow grammar of the first weather agents.
func WithAllowedKeys(keys ...string) Option {
	return func(p *RegexParser) {
		p.allowed = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			p.allowed[k] = struct{}{}
		}
	}
}

// NewRegexParser creates a RegexParser. By default every quoted key/value
// pair is extracted.
func NewRegexParser(opts ...Option) *RegexParser {
	p := &RegexParser{}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse implements Parser.
func (p *RegexParser) Parse(text string) (*core.ParsedAction, bool) {
	for _, line := range strings.Split(text, "\n") {
		loc := actionHead.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		name := line[loc[2]:loc[3]]
		body, ok := argumentText(line[loc[1]:])
		if !ok {
			return nil, false
		}
		return &core.ParsedAction{ToolName: name, Arguments: p.arguments(body)}, true
	}
	return nil, false
}

func (p *RegexParser) arguments(body string) map[string]any {
	args := map[string]any{}
	for _, m := range argPair.FindAllStringSubmatch(body, -1) {
		key := m[1]
		if p.allowed != nil {
			if _, ok := p.allowed[key]; !ok {
				continue
			}
		}
		if _, seen := args[key]; seen {
			continue
		}
		val := m[2]
		if val == "" {
			val = m[3]
		}
		args[key] = val
	}
	return args
}

// argumentText returns the text up to the parenthesis closing the one that
// was just opened. Parentheses inside quoted strings are ignored.
func argumentText(rest string) (string, bool) {
	depth := 1
	var quote rune
	for i, r := range rest {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth == 0 {
				return strings.TrimSpace(rest[:i]), true
			}
		}
	}
	return "", false
}
