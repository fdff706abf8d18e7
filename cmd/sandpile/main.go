package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"sandpile/internal/app"
	"sandpile/internal/config"
	"sandpile/internal/logging"
	"sandpile/internal/runner"
	"sandpile/internal/sims/sandpile"
	"sandpile/internal/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "sandpile [width] [height] [period-ms]",
		Short: "Abelian sandpile with live avalanche statistics",
		Long: `sandpile drops grains on a width x height grid one at a time. Any cell
holding four or more grains topples, sending one grain to each neighbour;
grains pushed over the edge are lost. Cascade sizes are tracked in a
window of the last ten and a window of the ten largest.

Keys: f faster, s slower, space pause, n step, r reset, q quit.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Resolve(cmd.Flags(), cfgPath, args); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "YAML config file")
	cfg.Bind(cmd.Flags())

	cmd.AddCommand(newSweepCmd(), newReportCmd())
	return cmd
}

func run(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	// Screen drivers own the terminal, so their logs go to a file or nowhere.
	var fallback io.Writer
	if cfg.UI == config.UIHeadless {
		fallback = stderr
	}
	logger, closeLog, err := logging.Open(cfg.Log.Level, cfg.Log.File, fallback)
	if err != nil {
		return err
	}
	defer closeLog()

	eng := sandpile.New(sandpile.Config{Width: cfg.Width, Height: cfg.Height, Seed: cfg.Seed})
	logger.Info("starting",
		"width", cfg.Width, "height", cfg.Height, "period", cfg.Period(), "ui", cfg.UI, "seed", cfg.Seed)

	sinks, err := runner.OpenSinks(ctx, cfg, eng, logger)
	if err != nil {
		return err
	}
	logger.Debug("run id", "run", sinks.RunID)
	defer func() {
		if err := sinks.Close(eng.Ticks()); err != nil {
			logger.Error("closing sinks", "err", err)
		}
	}()

	sess := runner.NewSession(eng, cfg.Period(), logger)
	sinks.Attach(sess)

	switch cfg.UI {
	case config.UIHeadless:
		return runner.RunHeadless(ctx, sess, sinks, runner.HeadlessOptions{
			Ticks:       cfg.Headless.Ticks,
			ReportEvery: cfg.Headless.ReportEvery,
		})
	case config.UIGUI:
		return app.Run(sess, sinks, cfg.Scale)
	default:
		return runTerm(ctx, sess, sinks, logger)
	}
}

func runTerm(ctx context.Context, sess *runner.Session, sinks *runner.Sinks, logger *slog.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	defer screen.Fini()
	err = term.New(screen, sess, sinks).Run(ctx)
	logger.Info("stopped", "ticks", sess.Engine().Ticks(), "cascades", sess.Engine().Cascades())
	return err
}
