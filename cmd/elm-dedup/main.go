package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/miniBill/elm-dedup-project/internal/download"
	"github.com/miniBill/elm-dedup-project/internal/engine"
	"github.com/miniBill/elm-dedup-project/internal/environment"
	"github.com/miniBill/elm-dedup-project/internal/runner"
	"github.com/miniBill/elm-dedup-project/internal/tui"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		TimeFormat: time.Kitchen,
	})))

	cmd := &cli.Command{
		Name:  "elm-dedup",
		Usage: "differential testing of Elm compiler forks across the package corpus",
		Commands: []*cli.Command{
			runCommand(),
			downloadCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "walk the corpus and run every test suite under each compiler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Value:   "repos",
				Usage:   "corpus root directory",
				Sources: cli.EnvVars("ELM_DEDUP_ROOT"),
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "number of concurrent test workers (overrides config)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-run wall clock limit (overrides config)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "optional TOML config file",
			},
			&cli.StringFlag{
				Name:  "export",
				Value: "export.csv",
				Usage: "path the e key exports to",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := environment.Read(cmd.String("config"))
			if err != nil {
				return err
			}
			if cmd.IsSet("concurrency") {
				cfg.Concurrency = int(cmd.Int("concurrency"))
			}
			timeout := cfg.Timeout()
			if cmd.IsSet("timeout") {
				timeout = cmd.Duration("timeout")
			}

			log := slog.Default().With("run_id", uuid.NewString()[:8])
			log.Info("starting differential run",
				"root", cmd.String("root"),
				"concurrency", cfg.Concurrency,
				"timeout", timeout)

			exportPath := cmd.String("export")
			state := engine.NewState(engine.DefaultQueueSize)
			eng := engine.New(
				state,
				runner.New(cfg.Compilers, runner.WithTimeout(timeout)),
				func(ctx context.Context, state *engine.State) error {
					return tui.Run(ctx, state, exportPath)
				},
				cmd.String("root"),
				cfg.Concurrency,
				log,
			)
			return eng.Run(ctx)
		},
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "clone every published package version into the corpus tree",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Value:   "repos",
				Usage:   "corpus root directory",
				Sources: cli.EnvVars("ELM_DEDUP_ROOT"),
			},
			&cli.IntFlag{
				Name:  "jobs",
				Value: 8,
				Usage: "parallel clone jobs",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			d := download.New(cmd.String("root"), int(cmd.Int("jobs")), slog.Default())
			return d.Run(ctx)
		},
	}
}
