package main

import (
	"fmt"
	"strings"

	"github.com/hupe1980/reactloop"
	"github.com/hupe1980/reactloop/config"
	"github.com/hupe1980/reactloop/customer"
	"github.com/hupe1980/reactloop/model/ollama"
	"github.com/hupe1980/reactloop/runner"
	"github.com/hupe1980/reactloop/warmup"
	"github.com/spf13/cobra"
)

func newChatCmd(a *app) *cobra.Command {
	var unbounded bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read questions from stdin, one session per line; exit or quit to stop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := a.load()
			if err != nil {
				return err
			}
			s, err := a.stack(cfg, log, func(o *reactloop.Options) {
				o.Unbounded = unbounded
				o.Runner = func(ro *runner.Options) {
					ro.Output = cmd.OutOrStdout()
					ro.Replies = true
				}
			})
			if err != nil {
				return err
			}
			defer s.Close()

			if unbounded {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: running without step or tool-call budget")
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			return s.Runner.Serve(ctx, runner.NewLineSource(cmd.InOrStdin()))
		},
	}
	cmd.Flags().BoolVar(&unbounded, "unbounded", false, "disable step and tool-call budgets")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Run a single session; exit code 0 completed, 3 budget exhausted, 4 transport failure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.load()
			if err != nil {
				return err
			}
			s, err := a.stack(cfg, log)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, err := s.Runner.Ask(ctx, strings.Join(args, " "))
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), res.FinalAnswer)
			}
			if code := exitCode(res, err); code != exitCompleted {
				return &exitCodeError{code: code, err: err}
			}
			return nil
		},
	}
}

func newWarmupCmd(a *app) *cobra.Command {
	var models []string
	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Preload the model backend with a batch of short generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := a.load()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()

			m, err := reactloop.NewModel(cfg)
			if err != nil {
				return err
			}
			if om, ok := m.(*ollama.Model); ok {
				rep, err := om.Preflight(ctx, models...)
				if err != nil {
					return err
				}
				for _, missing := range rep.Missing {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: model %s not pulled (ollama pull %s)\n", missing, missing)
				}
			}

			pool := warmup.NewPool(func(o *warmup.Options) {
				o.Workers = cfg.WarmupWorkers
				o.Timeout = 2 * cfg.Timeout
				o.Logger = log.WithComponent("warmup")
			})
			rep, err := pool.Run(ctx, warmup.FromModel(m), warmup.Default(cfg.WarmupReps))
			fmt.Fprintln(cmd.OutOrStdout(), rep.String())
			if err != nil {
				return err
			}
			if failed := rep.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d warm-up task(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&models, "require", []string{ollama.DefaultModel}, "models expected to be pulled locally (ollama only)")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [path]",
		Short: "Create (or reset) the customer database with the demo record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.load()
			if err != nil {
				return err
			}
			path := cfg.CustomerDB
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("%w: no customer database path (set customer_db or pass one)", config.ErrInvalid)
			}

			store, err := customer.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", path)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := a.load()
			if err != nil {
				return err
			}
			return config.Dump(cmd.OutOrStdout(), cfg)
		},
	}
}

