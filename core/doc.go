// Package core provides the foundational domain types shared by the loop,
// the parser, the tool registry and the model backends:
//
//   - Turn and Role (one role-tagged message)
//   - Conversation (the append-only transcript sent to the backend)
//   - ParsedAction (a tool invocation recognized in model output)
//   - Budget and BudgetState (step and tool-call admission)
//
// The package has no knowledge of concrete backends or tools.
package core
