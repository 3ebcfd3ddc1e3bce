// Package reactloop wires configuration into a ready-to-run agent stack:
// model backend, tool registry (with the optional customer store), budgeted
// or unbounded agent, and the input runner. Most applications only need
// New and Stack.Runner; the individual packages remain usable on their own.
package reactloop

import (
	"errors"
	"fmt"

	"github.com/hupe1980/reactloop/agent"
	"github.com/hupe1980/reactloop/config"
	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/customer"
	"github.com/hupe1980/reactloop/logging"
	"github.com/hupe1980/reactloop/model"
	"github.com/hupe1980/reactloop/model/anthropic"
	"github.com/hupe1980/reactloop/model/ollama"
	"github.com/hupe1980/reactloop/model/openai"
	"github.com/hupe1980/reactloop/runner"
	"github.com/hupe1980/reactloop/session"
	"github.com/hupe1980/reactloop/tool"
	"github.com/hupe1980/reactloop/tool/builtin"
)

// Options configures the stack beyond what Config covers.
type Options struct {
	// Unbounded selects agent.NewUnbounded instead of the budgeted agent.
	Unbounded bool
	// Model overrides the backend selected by Config.Backend.
	Model model.Model
	// Tools replaces the built-in tool set.
	Tools []tool.Tool
	// Logger defaults to a discarding logger.
	Logger *logging.LoopLogger
	// Runner customises the runner (output, prompt, store).
	Runner func(o *runner.Options)
	// OnTurn receives every turn appended by the agent, before the runner
	// prints assistant replies (runner.Options.Replies).
	OnTurn func(core.Turn)
}

// Stack is a fully wired agent application.
type Stack struct {
	Config    *config.Config
	Model     model.Model
	Registry  *tool.Registry
	Agent     *agent.Agent
	Runner    *runner.Runner
	Sessions  session.Store
	Customers *customer.Store
	Logger    *logging.LoopLogger
}

// New builds a Stack from cfg.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	s := &Stack{Config: cfg, Logger: log}

	m := opts.Model
	if m == nil {
		var err error
		if m, err = NewModel(cfg); err != nil {
			return nil, err
		}
	}
	s.Model = m

	tools := opts.Tools
	if tools == nil {
		bopts := builtin.Options{LogRoot: cfg.LogRoot}
		if cfg.CustomerDB != "" {
			store, err := customer.Open(cfg.CustomerDB)
			if err != nil {
				return nil, err
			}
			s.Customers = store
			bopts.Customers = store
		}
		tools = builtin.Defaults(bopts)
	}

	reg, err := tool.NewRegistry(tools, func(o *tool.RegistryOptions) {
		o.CallTimeout = cfg.ToolTimeout
		o.Logger = log.WithComponent("registry")
	})
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	s.Registry = reg

	agentOpts := func(o *agent.Options) {
		o.StepLimit = cfg.StepLimit
		o.ToolCallLimit = cfg.ToolCallLimit
		o.Temperature = cfg.GenerationTemperature
		o.MaxTokens = cfg.GenerationMaxTokens
		o.Timeout = cfg.Timeout
		o.TerminalMarker = cfg.TerminalMarker
		o.FinalizeOnExhaustion = cfg.FinalizeOnExhaustion
		o.Logger = log
		o.OnTurn = func(t core.Turn) {
			if opts.OnTurn != nil {
				opts.OnTurn(t)
			}
			s.Runner.Observe(t)
		}
	}
	if opts.Unbounded {
		s.Agent, err = agent.NewUnbounded(m, reg, agentOpts)
	} else {
		s.Agent, err = agent.New(m, reg, agentOpts)
	}
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	s.Sessions = session.NewInMemoryStore(100)
	s.Runner = runner.New(s.Agent, func(o *runner.Options) {
		o.Store = s.Sessions
		o.Logger = log.WithComponent("runner")
		if opts.Runner != nil {
			opts.Runner(o)
		}
	})
	return s, nil
}

// Close releases the customer store, if one was opened.
func (s *Stack) Close() error {
	if s.Customers == nil {
		return nil
	}
	return s.Customers.Close()
}

// DemoScript drives the scripted backend: one weather lookup, then an answer.
var DemoScript = []string{
	"Thought: I should check the weather.\nAction: weather(location=\"Paris\")",
	"Final: It is 7C with light rain in Paris.",
}

// NewModel creates the backend named by cfg.Backend.
func NewModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Backend {
	case config.BackendOllama:
		return ollama.NewModel(func(o *ollama.Options) {
			o.Model = cfg.Model
			o.Host = cfg.Host
		})
	case config.BackendOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.BaseURL = cfg.Host
			o.APIKey = cfg.APIKey
		}), nil
	case config.BackendAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.BaseURL = cfg.Host
			o.APIKey = cfg.APIKey
		}), nil
	case config.BackendScripted:
		return model.NewScriptedModel(DemoScript...), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
	}
}
