// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API. Setting a base URL points it at any compatible
// server, including Ollama's /v1 endpoint.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const providerName = "openai"

// Options configure the OpenAI model adapter.
type Options struct {
	Model   string
	BaseURL string
	APIKey  string
	// Stream aggregates streamed deltas instead of issuing a blocking call.
	Stream     bool
	MaxRetries int
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns...)

	clientOpts := []option.RequestOption{option.WithMaxRetries(opts.MaxRetries)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{Model: openai.ChatModelGPT4oMini}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Complete implements model.Model.
func (m *Model) Complete(ctx context.Context, req model.Request) (string, error) {
	ctx, cancel := model.WithTimeout(ctx, req.Options)
	defer cancel()

	params := m.buildParams(req)
	if m.opts.Stream {
		return m.completeStreaming(ctx, params)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapError("chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", model.NewError(providerName, "chat", errors.New("malformed response: no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *Model) completeStreaming(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	for stream.Next() {
		for _, ch := range stream.Current().Choices {
			text.WriteString(ch.Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return "", wrapError("stream", err)
	}
	return text.String(), nil
}

// buildParams converts the transcript into chat messages.
func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:    buildMessages(req.Turns),
		Model:       m.opts.Model,
		Temperature: openai.Float(req.Options.Temperature),
	}
	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Options.MaxTokens))
	}
	return params
}

func buildMessages(turns []core.Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	return messages
}

func wrapError(op string, err error) error {
	mErr := model.NewError(providerName, op, err)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		mErr.Status = apiErr.StatusCode
	}
	return mErr
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: providerName}
}
