package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.APIKey = "test"
	})
}

func TestModel_Complete(t *testing.T) {
	var body struct {
		System   []map[string]any `json:"system"`
		Messages []struct {
			Role    string           `json:"role"`
			Content []map[string]any `json:"content"`
		} `json:"messages"`
		MaxTokens int `json:"max_tokens"`
	}
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude",
			"content":[{"type":"text","text":"Final: sunny"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":1,"output_tokens":1}}`))
	})

	out, err := m.Complete(context.Background(), model.Request{
		Turns: []core.Turn{
			core.SystemTurn("be brief"),
			core.UserTurn("weather?"),
			core.AssistantTurn("Action: weather()"),
			core.ObservationTurn("rain"),
			core.ObservationTurn("more rain"),
		},
		Options: model.GenerationOptions{Temperature: 0.2},
	})

	require.NoError(t, err)
	assert.Equal(t, "Final: sunny", out)
	require.Len(t, body.System, 1)
	assert.Equal(t, "be brief", body.System[0]["text"])
	assert.Equal(t, DefaultMaxTokens, body.MaxTokens)
	require.Len(t, body.Messages, 3)
	assert.Equal(t, "user", body.Messages[2].Role)
	assert.Equal(t, "Observation: rain\n\nObservation: more rain", body.Messages[2].Content[0]["text"])
}

func TestModel_CompleteHTTPError(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`))
	})

	_, err := m.Complete(context.Background(), model.Request{Turns: []core.Turn{core.UserTurn("hi")}})

	require.ErrorIs(t, err, model.ErrTransport)
	var mErr *model.Error
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, http.StatusUnauthorized, mErr.Status)
}

func TestBuildMessages_MergesRoles(t *testing.T) {
	msgs := buildMessages([]core.Turn{core.SystemTurn("s"), core.UserTurn("a"), core.UserTurn("b"), core.AssistantTurn("c")})
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}
