// Package ollama implements model.Model on top of a local Ollama server using
// the native /api/chat endpoint, plus the Generate and Preflight helpers used
// by the warm-up pool.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/model"
	"github.com/jmorganca/ollama/api"
)

const (
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "llama3.2:3b"
	// DefaultHost is the address of a local Ollama server.
	DefaultHost = "http://127.0.0.1:11434"

	providerName = "ollama"
)

// Client is the subset of *api.Client used by Model.
type Client interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
	Heartbeat(ctx context.Context) error
	List(ctx context.Context) (*api.ListResponse, error)
}

// Options configure the Ollama model adapter.
type Options struct {
	Model string
	// Host overrides OLLAMA_HOST. Empty keeps the environment (or the default).
	Host string
}

// Model wraps an Ollama server behind the generic model.Model interface.
type Model struct {
	client Client
	opts   Options
}

// NewModel creates a model backed by an *api.Client built from the environment.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions(optFns...)
	if opts.Host != "" {
		// api.ClientFromEnvironment is the only constructor; it reads OLLAMA_HOST.
		if err := os.Setenv("OLLAMA_HOST", opts.Host); err != nil {
			return nil, fmt.Errorf("set OLLAMA_HOST: %w", err)
		}
	}
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a model from an existing client.
func NewModelFromClient(client Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{Model: DefaultModel}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	return opts
}

// Complete implements model.Model using /api/chat with streaming disabled.
func (m *Model) Complete(ctx context.Context, req model.Request) (string, error) {
	ctx, cancel := model.WithTimeout(ctx, req.Options)
	defer cancel()

	stream := false
	chatReq := &api.ChatRequest{
		Model:    m.opts.Model,
		Messages: toMessages(req.Turns),
		Stream:   &stream,
		Options:  generationOptions(req.Options),
	}

	var out strings.Builder
	var done bool
	err := m.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		done = done || resp.Done
		return nil
	})
	if err != nil {
		return "", wrapError("chat", err)
	}
	if !done {
		return "", model.NewError(providerName, "chat", errors.New("malformed response: missing done marker"))
	}
	return out.String(), nil
}

// Generate runs a single prompt through /api/generate.
func (m *Model) Generate(ctx context.Context, prompt string, opts model.GenerationOptions) (string, error) {
	ctx, cancel := model.WithTimeout(ctx, opts)
	defer cancel()

	stream := false
	var out strings.Builder
	err := m.client.Generate(ctx, &api.GenerateRequest{
		Model:   m.opts.Model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: generationOptions(opts),
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", wrapError("generate", err)
	}
	return out.String(), nil
}

// PreflightReport summarises server reachability and local model availability.
type PreflightReport struct {
	Reachable bool
	Models    []string
	Missing   []string
}

// Preflight pings the server and checks which of want are pulled locally.
// Names match on their base (the part before ':'), as `ollama list` tags vary.
func (m *Model) Preflight(ctx context.Context, want ...string) (PreflightReport, error) {
	var rep PreflightReport
	if err := m.client.Heartbeat(ctx); err != nil {
		return rep, wrapError("heartbeat", err)
	}
	rep.Reachable = true

	list, err := m.client.List(ctx)
	if err != nil {
		return rep, wrapError("list", err)
	}
	for _, lm := range list.Models {
		rep.Models = append(rep.Models, lm.Name)
	}
	for _, w := range want {
		base, _, _ := strings.Cut(w, ":")
		found := false
		for _, have := range rep.Models {
			if strings.Contains(have, base) {
				found = true
				break
			}
		}
		if !found {
			rep.Missing = append(rep.Missing, w)
		}
	}
	return rep, nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info { return model.Info{Name: m.opts.Model, Provider: providerName} }

func toMessages(turns []core.Turn) []api.Message {
	msgs := make([]api.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, api.Message{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}

func generationOptions(o model.GenerationOptions) map[string]any {
	opts := map[string]any{"temperature": o.Temperature}
	if o.MaxTokens > 0 {
		opts["num_predict"] = o.MaxTokens
	}
	return opts
}

func wrapError(op string, err error) error {
	mErr := model.NewError(providerName, op, err)
	var status api.StatusError
	if errors.As(err, &status) {
		mErr.Status = status.StatusCode
	}
	return mErr
}
