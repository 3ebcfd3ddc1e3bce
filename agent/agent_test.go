package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/internal/testutil"
	"github.com/hupe1980/reactloop/model"
	"github.com/hupe1980/reactloop/parser"
	"github.com/hupe1980/reactloop/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWeatherRegistry(t *testing.T) (*tool.Registry, *testutil.CountingTool) {
	t.Helper()
	weather := testutil.NewCountingTool("weather", "Weather for Paris: 7C, light rain (stub).")
	reg, err := tool.NewRegistry([]tool.Tool{weather})
	require.NoError(t, err)
	return reg, weather
}

func observations(turns []core.Turn) []string {
	var out []string
	for _, t := range turns {
		if t.Role == core.RoleUser && strings.HasPrefix(t.Content, core.ObservationPrefix) {
			out = append(out, strings.TrimPrefix(t.Content, core.ObservationPrefix))
		}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := model.NewScriptedModel("Final: ok")

	tests := []struct {
		name  string
		model model.Model
		reg   *tool.Registry
		opt   func(o *Options)
	}{
		{name: "zero step limit", model: m, reg: reg, opt: func(o *Options) { o.StepLimit = 0 }},
		{name: "negative tool limit", model: m, reg: reg, opt: func(o *Options) { o.ToolCallLimit = -1 }},
		{name: "empty marker", model: m, reg: reg, opt: func(o *Options) { o.TerminalMarker = " " }},
		{name: "missing model", reg: reg, opt: func(*Options) {}},
		{name: "missing registry", model: m, opt: func(*Options) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.model, tt.reg, tt.opt)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	a, err := New(model.NewScriptedModel("Final: ok"), reg)
	require.NoError(t, err)

	opts := a.Options()
	assert.Equal(t, 6, opts.StepLimit)
	assert.Equal(t, 2, opts.ToolCallLimit)
	assert.Equal(t, 0.2, opts.Temperature)
	assert.Equal(t, 300, opts.MaxTokens)
	assert.Equal(t, "Final:", opts.TerminalMarker)
	assert.False(t, a.Unbounded())
}

func TestAgent_StepLimitBoundsBackendCalls(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("limit=%d", n), func(t *testing.T) {
			reg, weather := newWeatherRegistry(t)
			m := model.NewScriptedModel("Thought: still thinking")
			a, err := New(m, reg, func(o *Options) { o.StepLimit = n })
			require.NoError(t, err)

			res, err := a.Run(context.Background(), "What's the weather?")
			require.NoError(t, err)

			assert.Equal(t, n, m.Calls())
			assert.Equal(t, OutcomeBudgetExhausted, res.Outcome)
			assert.Equal(t, ExhaustedAnswer, res.FinalAnswer)
			assert.Equal(t, 0, res.ToolExecutions)
			assert.Equal(t, 0, weather.Calls())
			// system + user, then one assistant turn and one observation per step
			assert.Len(t, res.Conversation, 2+2*n)
		})
	}
}

func TestAgent_StepLimitOneWithMarker(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := model.NewScriptedModel("Final: it is raining")
	a, err := New(m, reg, func(o *Options) { o.StepLimit = 1 })
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "weather?")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Calls())
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, "Final: it is raining", res.FinalAnswer)
}

func TestAgent_ToolCallLimitBoundsExecutions(t *testing.T) {
	for _, limit := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			reg, weather := newWeatherRegistry(t)
			m := testutil.NewScript().Action("weather", "location", "Paris").Build()
			a, err := New(m, reg, func(o *Options) { o.ToolCallLimit = limit })
			require.NoError(t, err)

			res, err := a.Run(context.Background(), "weather?")
			require.NoError(t, err)

			want := min(limit, core.DefaultStepLimit)
			assert.Equal(t, want, weather.Calls())
			assert.Equal(t, want, res.ToolExecutions)
			assert.Equal(t, want, res.Budget.ToolCallsMade)
		})
	}
}

func TestAgent_ThreeActionsThenFinal(t *testing.T) {
	reg, weather := newWeatherRegistry(t)
	m := testutil.NewScript().
		Action("weather", "location", "Paris").
		Action("weather", "location", "Berlin").
		Action("weather", "location", "Rome").
		Final("Paris is rainy.").
		Build()
	a, err := New(m, reg, func(o *Options) { o.StepLimit = 6; o.ToolCallLimit = 2 })
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "Compare the weather")
	require.NoError(t, err)

	assert.Equal(t, 4, m.Calls())
	assert.Equal(t, 2, weather.Calls())
	assert.Equal(t, "Paris", weather.Args(0)["location"])
	assert.Equal(t, "Berlin", weather.Args(1)["location"])
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Contains(t, res.FinalAnswer, "Final:")
	assert.Equal(t, core.BudgetState{StepsTaken: 4, ToolCallsMade: 2, StepLimit: 6, ToolCallLimit: 2}, res.Budget)

	obs := observations(res.Conversation)
	require.Len(t, obs, 3)
	assert.Equal(t, ToolBudgetObservation, obs[2])
}

func TestAgent_NeverTerminatingModel(t *testing.T) {
	reg, weather := newWeatherRegistry(t)
	m := model.NewScriptedModel("I am not sure.")
	a, err := New(m, reg)
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, core.DefaultStepLimit, m.Calls())
	assert.Equal(t, OutcomeBudgetExhausted, res.Outcome)
	assert.Equal(t, "Final: I'm stopping because the step budget was reached.", res.FinalAnswer)
	assert.Equal(t, 0, weather.Calls())
	for _, o := range observations(res.Conversation) {
		assert.Equal(t, NoActionObservation, o)
	}
}

func TestAgent_UnknownToolDoesNotConsumeBudget(t *testing.T) {
	reg, weather := newWeatherRegistry(t)
	m := model.NewScriptedModel("Action: rocket(speed=9)", "Final: no rocket")
	a, err := New(m, reg)
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "launch")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 0, res.Budget.ToolCallsMade)
	assert.Equal(t, 0, weather.Calls())
	assert.Equal(t, []string{"tool 'rocket' not available."}, observations(res.Conversation))
}

func TestAgent_ToolFailureBecomesObservation(t *testing.T) {
	broken := testutil.NewCountingTool("weather", "").Failing(errors.New("upstream down"))
	reg, err := tool.NewRegistry([]tool.Tool{broken})
	require.NoError(t, err)
	m := testutil.NewScript().Action("weather").Final("sorry").Build()

	a, err := New(m, reg)
	require.NoError(t, err)
	res, err := a.Run(context.Background(), "weather?")
	require.NoError(t, err)

	assert.Equal(t, 1, res.ToolExecutions)
	assert.Equal(t, 1, res.Budget.ToolCallsMade)
	assert.Equal(t, []string{"tool 'weather' failed: upstream down"}, observations(res.Conversation))
}

func TestAgent_Deterministic(t *testing.T) {
	script := testutil.NewScript().
		Think("let me check").
		Action("weather", "location", "Oslo").
		Action("rocket", "speed", "9").
		Final("cold")

	run := func() []core.Turn {
		reg, _ := newWeatherRegistry(t)
		a, err := New(script.Build(), reg)
		require.NoError(t, err)
		res, err := a.Run(context.Background(), "weather in Oslo?")
		require.NoError(t, err)
		return res.Conversation
	}

	assert.Equal(t, run(), run())
}

func TestAgent_TransportError(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	cause := errors.New("connection refused")
	m := testutil.NewScript().Action("weather", "location", "Paris").Final("x").Build().FailOn(2, cause)
	a, err := New(m, reg)
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "weather?")

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, 2, tErr.Step)
	assert.ErrorIs(t, err, model.ErrTransport)
	assert.ErrorIs(t, err, cause)
	require.NotNil(t, res)
	assert.Empty(t, res.Outcome)
	assert.Equal(t, 1, res.ToolExecutions)
	// no assistant turn was appended for the failed step
	last := res.Conversation[len(res.Conversation)-1]
	assert.Equal(t, core.RoleUser, last.Role)
}

func TestAgent_PlainBackendErrorIsWrapped(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := model.Func(func(context.Context, model.Request) (string, error) { return "", errors.New("boom") })
	a, err := New(m, reg)
	require.NoError(t, err)

	_, err = a.Run(context.Background(), "hi")
	assert.ErrorIs(t, err, model.ErrTransport)
}

func TestAgent_CancelledBeforeStep(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := model.NewScriptedModel("Final: never")
	a, err := New(m, reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := a.Run(ctx, "hi")
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Budget.StepsTaken)
}

func TestAgent_CancelledBetweenSteps(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	m := model.Func(func(context.Context, model.Request) (string, error) {
		calls++
		cancel()
		return "thinking", nil
	})
	a, err := New(m, reg)
	require.NoError(t, err)

	res, err := a.Run(ctx, "hi")
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 1, calls)
	// only the step that reached the model is counted
	assert.Equal(t, 1, res.Budget.StepsTaken)
	assert.Equal(t, core.ObservationTurn(NoActionObservation), res.Conversation[len(res.Conversation)-1])
}

func TestAgent_FinalizeOnExhaustion(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := testutil.NewScript().Think("a").Think("b").Final("best effort").Build()
	a, err := New(m, reg, func(o *Options) {
		o.StepLimit = 2
		o.FinalizeOnExhaustion = true
	})
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, 3, m.Calls())
	assert.Equal(t, OutcomeBudgetExhausted, res.Outcome)
	assert.Equal(t, "Final: best effort", res.FinalAnswer)
	obs := observations(res.Conversation)
	assert.Equal(t, FinalizeObservation, obs[len(obs)-1])
}

func TestAgent_FinalizeWithoutMarkerKeepsExhaustedAnswer(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := model.NewScriptedModel("nope")
	a, err := New(m, reg, func(o *Options) {
		o.StepLimit = 1
		o.FinalizeOnExhaustion = true
	})
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, ExhaustedAnswer, res.FinalAnswer)
}

func TestAgent_Transitions(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := testutil.NewScript().Action("weather", "location", "Paris").Final("rain").Build()

	var got []string
	a, err := New(m, reg, func(o *Options) {
		o.OnTransition = func(from, to State) { got = append(got, from.String()+">"+to.String()) }
	})
	require.NoError(t, err)

	_, err = a.Run(context.Background(), "weather?")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"AWAITING_MODEL>PARSING",
		"PARSING>TOOL_ADMITTED",
		"TOOL_ADMITTED>AWAITING_MODEL",
		"AWAITING_MODEL>PARSING",
		"PARSING>TERMINAL",
		"TERMINAL>DONE",
	}, got)
}

func TestAgent_OnTurnSeesEveryTurn(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := testutil.NewScript().Think("x").Final("y").Build()

	var seen []core.Turn
	a, err := New(m, reg, func(o *Options) { o.OnTurn = func(t core.Turn) { seen = append(seen, t) } })
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, res.Conversation, seen)
}

func TestAgent_SystemPromptListsTools(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := model.NewScriptedModel("Final: ok")
	a, err := New(m, reg)
	require.NoError(t, err)

	_, err = a.Run(context.Background(), "hi")
	require.NoError(t, err)

	req := m.Requests()[0]
	require.Len(t, req.Turns, 2)
	assert.Equal(t, core.RoleSystem, req.Turns[0].Role)
	assert.Contains(t, req.Turns[0].Content, "- weather(): counts its calls")
	assert.Contains(t, req.Turns[0].Content, `"Final:"`)
	assert.Equal(t, model.GenerationOptions{Temperature: 0.2, MaxTokens: 300, Timeout: model.DefaultGenerationOptions().Timeout}, req.Options)
}

func TestAgent_CustomInstructionAndParser(t *testing.T) {
	reg, weather := newWeatherRegistry(t)
	m := model.NewScriptedModel(`Action: {"tool":"weather","arguments":{"location":"Lima"}}`, "DONE: sunny")
	a, err := New(m, reg, func(o *Options) {
		o.Parser = parser.JSONParser{}
		o.TerminalMarker = "DONE:"
		o.Instruction = NewInstructionFromFunc(func(_ context.Context, d PromptData) (string, error) {
			return "tools: " + strings.Join(d.ToolNames, ","), nil
		})
	})
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "weather in Lima?")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, "Lima", weather.Args(0)["location"])
	assert.Equal(t, "tools: weather", res.Conversation[0].Content)
}

func TestAgent_EmptyInstructionOmitsSystemTurn(t *testing.T) {
	reg, _ := newWeatherRegistry(t)
	m := model.NewScriptedModel("Final: ok")
	a, err := New(m, reg, func(o *Options) { o.Instruction = NewInstructionFromText("") })
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, res.Conversation[0].Role)
}

func TestAgent_RunsAreIndependent(t *testing.T) {
	reg, weather := newWeatherRegistry(t)
	a, err := New(testutil.NewScript().Action("weather").Final("done").Build(), reg)
	require.NoError(t, err)

	first, err := a.Run(context.Background(), "one")
	require.NoError(t, err)
	second, err := a.Run(context.Background(), "two")
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, first.Budget.ToolCallsMade)
	assert.Equal(t, 0, second.Budget.ToolCallsMade)
	assert.Equal(t, 1, weather.Calls())
}
