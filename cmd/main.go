package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tutorx/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Config:     shared.DefaultConfig(),
		ConfigPath: "config.toml",
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(runner).Run(ctx, os.Args)
	stop()

	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Warn("interrupted")
			os.Exit(130)
		case errors.Is(err, shared.ErrNotAuthenticated):
			logger.Error(err)
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newApp builds the root command. Configuration is loaded and the backend wired in Before.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tutorx",
		Usage:   "Turn session transcripts into tutorials from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file with TUTORX_* overrides",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.bootstrap,
		After:    r.close,
		Commands: r.register(),
	}
}
