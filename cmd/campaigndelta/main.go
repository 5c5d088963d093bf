// Command campaigndelta compares two snapshots of campaign performance,
// enriches each video link with YouTube statistics, classifies the ad
// format, prices it and writes the augmented table.
//
// Subcommands: run (batch), check (preflight diagnostics) and serve (the
// upload form over HTTP).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/campaigndelta/internal/check"
	"github.com/backmassage/campaigndelta/internal/config"
	"github.com/backmassage/campaigndelta/internal/display"
	"github.com/backmassage/campaigndelta/internal/enrich"
	"github.com/backmassage/campaigndelta/internal/logging"
	"github.com/backmassage/campaigndelta/internal/pipeline"
	"github.com/backmassage/campaigndelta/internal/server"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// errReported marks an error that has already been logged.
var errReported = errors.New("reported")

func main() {
	os.Exit(run())
}

func run() int {
	a := &app{cfg: config.DefaultConfig()}
	err := newRootCmd(a).Execute()
	if a.log != nil {
		defer a.log.Close()
	}
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		if a.log != nil {
			a.log.Error("%v", err)
		} else {
			fmt.Fprintf(os.Stderr, "campaigndelta: %v\n", err)
		}
	}
	return 1
}

// app carries the state shared by the subcommands.
type app struct {
	cfg       config.Config
	overrides *config.Overrides
	log       *logging.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "campaigndelta",
		Short: "Compare campaign snapshots, enrich them with YouTube data and price each video",
		Long: `campaigndelta joins an old and a new campaign export on the video link,
computes reaction and view deltas, looks up each video's view count and
duration, classifies the ad format and applies a cost formula.

Thresholds, benchmarks, costs and the cost formula come from a YAML rules
file (--rules) and may be overridden by flags.`,
		Version:           fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	a.overrides = config.BindPersistentFlags(root.PersistentFlags(), &a.cfg)
	root.AddCommand(newRunCmd(a), newCheckCmd(a), newServeCmd(a))
	return root
}

// setup applies the rules file and flags, validates the shared settings and
// opens the logger. Until it succeeds, errors go to stderr directly.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.overrides.Apply(&a.cfg); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.NewLogger(&a.cfg)
	if err != nil {
		return err
	}
	a.log = log
	display.PrintBanner(cmd.OutOrStdout())
	return nil
}

// signalContext is canceled on SIGINT/SIGTERM so a run stops between lookups
// without writing partial output.
func (a *app) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			a.log.Warn("Received interrupt, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <old_file> <new_file>",
		Short: "Process two snapshots and write the output file",
		Example: `  campaigndelta run --rules rules.yaml old.xlsx new.xlsx
  campaigndelta run -r rules.yaml -o result.sqlite old.csv new.csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.OldFile, a.cfg.NewFile = args[0], args[1]
			if err := a.cfg.ValidateRun(); err != nil {
				return err
			}
			if err := check.CheckDeps(&a.cfg); err != nil {
				return err
			}

			ctx, stop := a.signalContext(cmd.Context())
			defer stop()

			stats, err := pipeline.Run(ctx, &a.cfg, a.log)
			if errors.Is(err, context.Canceled) {
				a.log.Warn("Interrupted; nothing was written")
				return errReported
			}
			if err != nil {
				return err
			}
			if stats.LookupMisses() > 0 {
				a.log.Warn("%d videos kept default metadata", stats.LookupMisses())
			}
			return nil
		},
	}
	config.BindRunFlags(cmd.Flags(), &a.cfg)
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [old_file] [new_file]",
		Short: "Check the API key, rules, inputs and one live lookup",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				a.cfg.OldFile = args[0]
			}
			if len(args) > 1 {
				a.cfg.NewFile = args[1]
			}

			ctx, stop := a.signalContext(cmd.Context())
			defer stop()

			var l enrich.Lookuper
			if a.cfg.APIKey != "" {
				client, err := pipeline.NewLookuper(ctx, &a.cfg)
				if err != nil {
					a.log.Warn("YouTube client: %v", err)
				} else {
					l = client
				}
			}

			if failed := check.RunCheck(ctx, &a.cfg, l, a.log); failed > 0 {
				a.log.Error("%d checks failed", failed)
				return errReported
			}
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload form over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base := a.cfg
			srv, err := server.New(&a.cfg, func(ctx context.Context, apiKey string) (enrich.Lookuper, error) {
				c := base
				c.APIKey = apiKey
				return pipeline.NewLookuper(ctx, &c)
			}, a.log)
			if err != nil {
				return err
			}

			ctx, stop := a.signalContext(cmd.Context())
			defer stop()
			return srv.ListenAndServe(ctx, a.cfg.ListenAddr)
		},
	}
	config.BindServeFlags(cmd.Flags(), &a.cfg)
	return cmd
}
