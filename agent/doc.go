// Package agent implements the ReAct loop: it alternates model calls with
// tool executions, feeding every tool result back to the model as an
// observation, until the reply carries the terminal marker or the step budget
// runs out.
//
// Two constructors exist:
//
//   - New builds the budgeted Agent. Every model call is admitted by a step
//     budget and every tool execution by a tool-call budget, so a run always
//     terminates after at most StepLimit backend calls.
//   - NewUnbounded builds the same loop without budgets. It only stops on the
//     terminal marker, cancellation or a transport failure and exists as a
//     reference for what the budgets protect against.
//
// The loop is a small state machine (see State). Transitions are reported
// through Options.OnTransition and every appended turn through Options.OnTurn.
package agent
