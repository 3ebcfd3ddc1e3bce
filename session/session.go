package session

import (
	"time"

	"github.com/hupe1980/reactloop/agent"
	"github.com/hupe1980/reactloop/core"
)

// Record is the immutable summary of one agent run.
type Record struct {
	ID             string           `json:"id"`
	Input          string           `json:"input"`
	Outcome        agent.Outcome    `json:"outcome,omitempty"`
	FinalAnswer    string           `json:"final_answer,omitempty"`
	Conversation   []core.Turn      `json:"conversation"`
	Budget         core.BudgetState `json:"budget"`
	ToolExecutions int              `json:"tool_executions"`
	Error          string           `json:"error,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	Duration       time.Duration    `json:"duration"`
}

// NewRecord builds a record from a run result. res may be nil when the run
// failed before the loop started.
func NewRecord(input string, startedAt time.Time, res *agent.Result, err error) Record {
	rec := Record{Input: input, StartedAt: startedAt}
	if res != nil {
		rec.ID = res.SessionID
		rec.Outcome = res.Outcome
		rec.FinalAnswer = res.FinalAnswer
		rec.Conversation = res.Conversation
		rec.Budget = res.Budget
		rec.ToolExecutions = res.ToolExecutions
		rec.Duration = res.Duration
	}
	if rec.ID == "" {
		rec.ID = core.NewID()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// Failed reports whether the run ended with an error.
func (r Record) Failed() bool { return r.Error != "" }

// Store persists session records.
type Store interface {
	Save(rec Record) error
	Get(id string) (Record, bool)
	List() []Record
}
