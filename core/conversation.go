package core

// Conversation is the ordered, append-only transcript of a single session.
// It is literally the prompt context sent to the backend on every step.
//
// A Conversation is owned by exactly one loop invocation and is not safe for
// concurrent use.
type Conversation struct {
	turns []Turn
}

// NewConversation creates a conversation seeded with the given turns.
func NewConversation(turns ...Turn) *Conversation {
	c := &Conversation{turns: make([]Turn, 0, len(turns)+8)}
	c.turns = append(c.turns, turns...)
	return c
}

// Append adds a turn to the end of the transcript.
func (c *Conversation) Append(t Turn) { c.turns = append(c.turns, t) }

// Snapshot returns a copy of the transcript in insertion order.
func (c *Conversation) Snapshot() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int { return len(c.turns) }

// Last returns the most recent turn, if any.
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}
