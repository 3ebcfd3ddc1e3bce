// Package tool implements the closed set of capabilities an agent may call.
// Tools are plain Go values with a name, a description shown to the model and a
// minimal JSON schema; the Registry resolves parsed actions to tools and turns
// every outcome, including failures, into observation text.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/reactloop/internal/util"
)

// Tool defines the contract for a capability the agent can invoke.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case) and descriptions
//   - Return text; the result is shown verbatim to the model
//   - Honor ctx cancellation when performing I/O
//   - Be safe for concurrent use, since a Registry is shared across sessions
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeTimeout    = "TIMEOUT"
)

// ToolError represents errors that occur during tool resolution or execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
