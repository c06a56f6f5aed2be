package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/roman-kulish/motor-ramp/cmd/pilot/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var config *app.Config

	cliApp := &cli.App{
		Name:  "pilot",
		Usage: "fly a quadcopter with altitude hold or keyboard trim",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level [debug, info, warn, error]",
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Override the configured control mode [hold, manual]",
			},
		},
		Before: func(c *cli.Context) error {
			configPath := c.String("config")

			var err error
			if config, err = app.LoadConfig(configPath); err != nil {
				return fmt.Errorf("failed to load configuration file '%s': %w", configPath, err)
			}

			if level := c.String("log-level"); level != "" {
				if err = config.Settings.LogLevel.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			if mode := c.String("mode"); mode != "" {
				config.Control.Mode = mode
				if err = config.Validate(); err != nil {
					return err
				}
			}

			logLevel.Set(config.Settings.LogLevel)
			return nil
		},
		Action: func(c *cli.Context) error {
			return app.Run(c.Context, config, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "fly",
				Usage: "Connect to the first device found and fly it until stopped",
				Action: func(c *cli.Context) error {
					return app.Run(c.Context, config, logger)
				},
			},
			{
				Name:  "scan",
				Usage: "List reachable devices",
				Action: func(c *cli.Context) error {
					return app.Scan(c.Context, config, logger, os.Stdout)
				},
			},
			{
				Name:  "flights",
				Usage: "List recorded flights",
				Action: func(c *cli.Context) error {
					return app.ListFlights(c.Context, config, os.Stdout)
				},
			},
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
