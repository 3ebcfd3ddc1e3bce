package agent

// State is a node of the loop's state machine.
type State int

const (
	StateAwaitingModel State = iota
	StateParsing
	StateToolAdmitted
	StateToolDenied
	StateNoAction
	StateTerminal
	StateBudgetExhausted
	StateDone
)

var stateNames = [...]string{
	StateAwaitingModel:   "AWAITING_MODEL",
	StateParsing:         "PARSING",
	StateToolAdmitted:    "TOOL_ADMITTED",
	StateToolDenied:      "TOOL_DENIED",
	StateNoAction:        "NO_ACTION",
	StateTerminal:        "TERMINAL",
	StateBudgetExhausted: "BUDGET_EXHAUSTED",
	StateDone:            "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Final reports whether no transition leaves s.
func (s State) Final() bool { return s == StateBudgetExhausted || s == StateDone }

// Outcome classifies how a run ended without error.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
)
