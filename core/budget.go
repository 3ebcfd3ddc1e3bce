package core

const (
	// DefaultStepLimit is the reference ceiling on model calls per session.
	DefaultStepLimit = 6
	// DefaultToolCallLimit is the reference ceiling on tool executions per session.
	DefaultToolCallLimit = 2

	// Unlimited disables a ceiling.
	Unlimited = -1
)

// BudgetState is a point-in-time view of a Budget.
type BudgetState struct {
	StepsTaken    int `json:"steps_taken"`
	ToolCallsMade int `json:"tool_calls_made"`
	StepLimit     int `json:"step_limit"`
	ToolCallLimit int `json:"tool_call_limit"`
}

// Budget counts steps and tool calls against fixed ceilings. Counters only
// ever grow. A negative limit (Unlimited) disables that ceiling; a tool call
// limit of 0 forbids tool calls.
//
// A Budget belongs to one session and is not synchronized.
type Budget struct {
	stepLimit     int
	toolCallLimit int
	steps         int
	toolCalls     int
}

// NewBudget creates a budget with the given ceilings.
func NewBudget(stepLimit, toolCallLimit int) *Budget {
	return &Budget{stepLimit: stepLimit, toolCallLimit: toolCallLimit}
}

// AdmitStep records a step and reports whether it is still within the limit.
func (b *Budget) AdmitStep() bool {
	b.steps++
	return b.stepLimit < 0 || b.steps <= b.stepLimit
}

// CanCallTool reports whether a tool call would be admitted, without
// consuming budget.
func (b *Budget) CanCallTool() bool {
	return b.toolCallLimit < 0 || b.toolCalls < b.toolCallLimit
}

// AdmitToolCall consumes one tool call if any remain. Denied calls do not
// change the counter.
func (b *Budget) AdmitToolCall() bool {
	if !b.CanCallTool() {
		return false
	}
	b.toolCalls++
	return true
}

// Remaining returns how many steps and tool calls are left; -1 means unlimited.
func (b *Budget) Remaining() (steps, toolCalls int) {
	steps, toolCalls = -1, -1
	if b.stepLimit >= 0 {
		steps = max(b.stepLimit-b.steps, 0)
	}
	if b.toolCallLimit >= 0 {
		toolCalls = b.toolCallLimit - b.toolCalls
	}
	return steps, toolCalls
}

// State returns a snapshot of the counters and limits.
func (b *Budget) State() BudgetState {
	return BudgetState{
		StepsTaken:    b.steps,
		ToolCallsMade: b.toolCalls,
		StepLimit:     b.stepLimit,
		ToolCallLimit: b.toolCallLimit,
	}
}
