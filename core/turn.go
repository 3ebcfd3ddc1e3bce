package core

import "github.com/google/uuid"

// Role identifies the author of a Turn.
type Role string

const (
	// RoleSystem carries instructions that frame the whole conversation.
	RoleSystem Role = "system"
	// RoleUser carries user input and synthetic observations.
	RoleUser Role = "user"
	// RoleAssistant carries model output.
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ObservationPrefix starts every observation injected into a conversation.
const ObservationPrefix = "Observation: "

// Turn is one role-tagged message. Turns are values; once appended to a
// Conversation they are never changed.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemTurn creates a system-role turn.
func SystemTurn(content string) Turn { return Turn{Role: RoleSystem, Content: content} }

// UserTurn creates a user-role turn.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn creates an assistant-role turn.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// ObservationTurn wraps observation text into the user-role turn the model
// sees before its next step.
func ObservationTurn(text string) Turn { return UserTurn(ObservationPrefix + text) }

// NewID returns a random identifier used for sessions.
func NewID() string { return uuid.NewString() }
