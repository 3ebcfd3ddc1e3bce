package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_AppendAndSnapshot(t *testing.T) {
	c := NewConversation(SystemTurn("sys"), UserTurn("hi"))
	c.Append(AssistantTurn("Thought: ..."))
	c.Append(ObservationTurn("(no tool call parsed)."))

	snap := c.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, RoleSystem, snap[0].Role)
	assert.Equal(t, RoleAssistant, snap[2].Role)
	assert.Equal(t, "Observation: (no tool call parsed).", snap[3].Content)
	assert.Equal(t, RoleUser, snap[3].Role)

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, snap[3], last)
}

func TestConversation_SnapshotIsACopy(t *testing.T) {
	c := NewConversation(UserTurn("original"))

	snap := c.Snapshot()
	snap[0].Content = "mutated"

	assert.Equal(t, "original", c.Snapshot()[0].Content)
	assert.Equal(t, 1, c.Len())
}

func TestConversation_LastOnEmpty(t *testing.T) {
	_, ok := NewConversation().Last()
	assert.False(t, ok)
}

func TestParsedAction_String(t *testing.T) {
	a := ParsedAction{ToolName: "weather", Arguments: map[string]any{"location": "Paris", "unit": "c"}}
	assert.Equal(t, `weather(location="Paris", unit="c")`, a.String())
	assert.Equal(t, "Paris", a.StringArg("location", "your location"))
	assert.Equal(t, "your location", a.StringArg("missing", "your location"))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("tool").Valid())
}
