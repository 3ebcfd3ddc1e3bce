package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hupe1980/reactloop/agent"
	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/internal/testutil"
	"github.com/hupe1980/reactloop/model"
	"github.com/hupe1980/reactloop/session"
	"github.com/hupe1980/reactloop/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAgent(t *testing.T, m model.Model) *agent.Agent {
	t.Helper()
	reg, err := tool.NewRegistry([]tool.Tool{testutil.NewCountingTool("weather", "rain")})
	require.NoError(t, err)
	a, err := agent.New(m, reg)
	require.NoError(t, err)
	return a
}

func TestIsExit(t *testing.T) {
	for _, in := range []string{"exit", "QUIT", "  Exit  ", "quit"} {
		assert.True(t, IsExit(in), in)
	}
	for _, in := range []string{"", "exit now", "bye"} {
		assert.False(t, IsExit(in), in)
	}
}

func TestLineSource(t *testing.T) {
	src := NewLineSource(strings.NewReader("first\n  second  \n"))
	ctx := context.Background()

	got, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", got)
	got, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRunner_ServeStopsOnQuit(t *testing.T) {
	m := testutil.NewScript().Final("one").Final("two").Final("three").Build()
	var out bytes.Buffer
	store := session.NewInMemoryStore(0)
	r := New(newAgent(t, m), func(o *Options) {
		o.Output = &out
		o.Store = store
		o.Prompt = ""
	})

	err := r.Serve(context.Background(), NewSliceSource("hello", "", "again", "Quit", "never"))
	require.NoError(t, err)

	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, 2, store.Len())
	assert.Contains(t, out.String(), "Final: one\n[completed] steps 1/6, tool calls 0/2\n")
	assert.Contains(t, out.String(), "Final: two")
	assert.NotContains(t, out.String(), "three")

	// each input gets a fresh session
	recs := store.List()
	assert.NotEqual(t, recs[0].ID, recs[1].ID)
	assert.Equal(t, "again", recs[1].Input)
}

func TestRunner_ServeReportsTransportErrors(t *testing.T) {
	m := model.NewScriptedModel("Final: ok").FailOn(1, errors.New("connection refused"))
	var out bytes.Buffer
	store := session.NewInMemoryStore(0)
	r := New(newAgent(t, m), func(o *Options) {
		o.Output = &out
		o.Store = store
		o.Summary = false
	})

	require.NoError(t, r.Serve(context.Background(), NewSliceSource("a", "b")))

	assert.Contains(t, out.String(), "error: model call failed at step 1")
	assert.Contains(t, out.String(), "Final: ok")
	recs := store.List()
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Failed())
	assert.False(t, recs[1].Failed())
}

func TestRunner_ServeCancelled(t *testing.T) {
	r := New(newAgent(t, model.NewScriptedModel("Final: ok")), func(o *Options) { o.Output = &bytes.Buffer{} })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Serve(ctx, NewSliceSource("a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_RepliesPrintedAsTheyArrive(t *testing.T) {
	reg, err := tool.NewRegistry([]tool.Tool{testutil.NewCountingTool("weather", "rain")})
	require.NoError(t, err)

	tests := []struct {
		name   string
		script *model.ScriptedModel
		want   string
	}{
		{
			name:   "completed",
			script: testutil.NewScript().Action("weather", "location", "Paris").Final("rain in Paris").Build(),
			want: "Thought: I should use weather.\n" +
				"Action: weather(location=\"Paris\")\n" +
				"Final: rain in Paris\n" +
				"[completed] steps 2/6, tool calls 1/2\n",
		},
		{
			name:   "exhausted",
			script: model.NewScriptedModel("hmm"),
			want: strings.Repeat("hmm\n", 6) +
				agent.ExhaustedAnswer + "\n" +
				"[budget_exhausted] steps 6/6, tool calls 0/2\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			var r *Runner
			a, err := agent.New(tt.script, reg, func(o *agent.Options) {
				o.OnTurn = func(turn core.Turn) { r.Observe(turn) }
			})
			require.NoError(t, err)
			r = New(a, func(o *Options) {
				o.Output = &out
				o.Prompt = ""
				o.Replies = true
			})

			require.NoError(t, r.Serve(context.Background(), NewSliceSource("weather?")))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRunner_ObserveIgnoredWithoutReplies(t *testing.T) {
	var out bytes.Buffer
	r := New(newAgent(t, model.NewScriptedModel("Final: ok")), func(o *Options) { o.Output = &out })

	r.Observe(core.AssistantTurn("Final: ok"))
	assert.Empty(t, out.String())
}

func TestRunner_AskExhausted(t *testing.T) {
	r := New(newAgent(t, model.NewScriptedModel("hmm")), func(o *Options) { o.Output = &bytes.Buffer{} })

	res, err := r.Ask(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, agent.OutcomeBudgetExhausted, res.Outcome)

	rec, ok := r.Store().Get(res.SessionID)
	require.True(t, ok)
	assert.Equal(t, agent.ExhaustedAnswer, rec.FinalAnswer)
}
