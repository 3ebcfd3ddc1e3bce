// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/model"
)

const (
	providerName = "anthropic"

	// DefaultMaxTokens applies when the request leaves MaxTokens at zero;
	// the Messages API requires a value.
	DefaultMaxTokens = 1024
)

// Options configures the Anthropic model adapter.
type Options struct {
	Model      string
	APIKey     string
	BaseURL    string
	MaxRetries int
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns...)

	clientOpts := []option.RequestOption{option.WithMaxRetries(opts.MaxRetries)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{Model: string(anthropic.ModelClaude3_5Sonnet20241022)}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Complete implements model.Model. System turns become the system prompt;
// consecutive turns of the same role are merged, as the API requires
// alternation.
func (m *Model) Complete(ctx context.Context, req model.Request) (string, error) {
	ctx, cancel := model.WithTimeout(ctx, req.Options)
	defer cancel()

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.opts.Model),
		Messages:    buildMessages(req.Turns),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Options.Temperature),
	}
	if system := systemBlocks(req.Turns); len(system) > 0 {
		params.System = system
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapError("messages", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	return text.String(), nil
}

func buildMessages(turns []core.Turn) []anthropic.MessageParam {
	var (
		messages []anthropic.MessageParam
		role     core.Role
		pending  []string
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		block := anthropic.NewTextBlock(strings.Join(pending, "\n\n"))
		if role == core.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
		pending = nil
	}

	for _, t := range turns {
		if t.Role == core.RoleSystem {
			continue
		}
		r := t.Role
		if r != core.RoleAssistant {
			r = core.RoleUser
		}
		if r != role {
			flush()
			role = r
		}
		pending = append(pending, t.Content)
	}
	flush()
	return messages
}

func systemBlocks(turns []core.Turn) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, t := range turns {
		if t.Role == core.RoleSystem && t.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: t.Content})
		}
	}
	return blocks
}

func wrapError(op string, err error) error {
	mErr := model.NewError(providerName, op, err)
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		mErr.Status = apiErr.StatusCode
	}
	return mErr
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: providerName}
}
