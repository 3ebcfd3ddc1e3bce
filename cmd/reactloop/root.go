package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/reactloop"
	"github.com/hupe1980/reactloop/agent"
	"github.com/hupe1980/reactloop/config"
	"github.com/hupe1980/reactloop/core"
	"github.com/hupe1980/reactloop/logging"
	"github.com/hupe1980/reactloop/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes of the ask command.
const (
	exitCompleted = 0
	exitFailure   = 1
	exitExhausted = 3
	exitTransport = 4
)

type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

// exitCode maps a run outcome to the process exit code.
func exitCode(res *agent.Result, err error) int {
	switch {
	case errors.Is(err, model.ErrTransport):
		return exitTransport
	case err != nil:
		return exitFailure
	case res.Outcome == agent.OutcomeBudgetExhausted:
		return exitExhausted
	default:
		return exitCompleted
	}
}

type app struct {
	v          *viper.Viper
	configFile string
	envFile    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "reactloop",
		Short:         "Run a budgeted ReAct agent against a local or hosted model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: ./reactloop.yaml or ~/.reactloop/reactloop.yaml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "print every turn to stderr")
	pf.String("backend", "", "model backend: ollama, openai, anthropic or scripted")
	pf.String("model", "", "model name")
	pf.String("host", "", "backend base URL")
	pf.Int("step-limit", 0, "maximum model calls per session")
	pf.Int("tool-call-limit", 0, "maximum tool executions per session")
	pf.Bool("finalize", false, "ask for a final answer once the step budget is exhausted")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")

	for key, flag := range map[string]string{
		"backend":                "backend",
		"model":                  "model",
		"host":                   "host",
		"step_limit":             "step-limit",
		"tool_call_limit":        "tool-call-limit",
		"finalize_on_exhaustion": "finalize",
		"log_level":              "log-level",
		"log_format":             "log-format",
	} {
		cobra.CheckErr(a.v.BindPFlag(key, pf.Lookup(flag)))
	}

	root.AddCommand(
		newChatCmd(a),
		newAskCmd(a),
		newWarmupCmd(a),
		newSeedCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) load() (*config.Config, *logging.LoopLogger, error) {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	return cfg, logging.NewSlogLogger(level, cfg.LogFormat, false), nil
}

func (a *app) stack(cfg *config.Config, log *logging.LoopLogger, optFns ...func(o *reactloop.Options)) (*reactloop.Stack, error) {
	return reactloop.New(cfg, append([]func(o *reactloop.Options){func(o *reactloop.Options) {
		o.Logger = log
		if a.verbose {
			o.OnTurn = printTurn
		}
	}}, optFns...)...)
}

func printTurn(t core.Turn) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", t.Role, t.Content)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
