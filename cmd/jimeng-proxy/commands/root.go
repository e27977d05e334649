package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jimengproxy/jimeng-proxy/internal/app"
	"github.com/jimengproxy/jimeng-proxy/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	return rootCommand(version, commit).Run(ctx, args)
}

func rootCommand(version, commit string) *cli.Command {
	return &cli.Command{
		Name:    "jimeng-proxy",
		Usage:   "OpenAI-compatible image and video generation on Jimeng",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars("JIMENG_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file loaded before reading the environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			proxyStartCommand(),
			authCommand(),
		},
	}
}

func proxyStartCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Starts the proxy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (host:port)",
			},
		},
		Action: proxyStartAction,
	}
}

func proxyStartAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts, err := cfg.Log.Instrumentation()
	if err != nil {
		return err
	}

	// Set up observability before creating app
	shutdownTelemetry, err := observability.Instrument(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	runErr := run(ctx, cfg)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to flush telemetry: %w", err))
	}
	return runErr
}

func run(ctx context.Context, cfg *app.Config) error {
	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting",
		"addr", cfg.Server.Addr,
		"upstream", cfg.Upstream.BaseURL,
		"token_storage", cfg.Auth.Storage,
	)

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
