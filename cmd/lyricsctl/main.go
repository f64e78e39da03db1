package main

import (
	"context"
	"os"

	"lyrics-finder-go/config"
	"lyrics-finder-go/services/engine"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	log.SetOutput(os.Stderr)

	runner := NewRunner(RunnerOpts{})

	app := &cli.Command{
		Name:    "lyricsctl",
		Usage:   "Search songs and artists and fetch lyrics from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "warn",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored log output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureLogging(cmd.String("log-level"), cmd.Bool("no-color"))

			e, err := engine.Build(config.Get(), engine.Options{})
			if err != nil {
				return ctx, err
			}
			runner.engine = e
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if runner.engine == nil {
				return nil
			}
			return runner.engine.Close()
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("lyricsctl: %v", err)
	}
}

func configureLogging(level string, noColor bool) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		NoColors:        noColor,
		TimestampFormat: "15:04:05",
		FieldsOrder:     []string{"component", "provider"},
	})
}
