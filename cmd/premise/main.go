package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("premise failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flagLogLevel := ""
	flagLogFormat := ""
	flagEnvFile := ""

	cmd := &cobra.Command{
		Use:   "premise",
		Short: "Build prospective life cycle inventory databases from IAM scenarios",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging(flagLogLevel, flagLogFormat)
			// secrets such as the scenario files key may live in a .env file
			if err := godotenv.Load(flagEnvFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to load %s: %w", flagEnvFile, err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log.level", "info", "log severity (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log.format", "text", "log format (text, json)")
	pf.StringVar(&flagEnvFile, "env", ".env", "environment file to load")

	cmd.AddCommand(newRunCommand(), newRegionsCommand(), newInspectCommand())
	return cmd
}

func initLogging(logLevel string, logFormat string) {
	switch logFormat {
	case "text":
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:   slogLevel(logLevel),
			NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
		})))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slogLevel(logLevel),
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				switch a.Key {
				case slog.LevelKey:
					a.Key = "severity"
					return a
				case slog.MessageKey:
					a.Key = "message"
					return a
				default:
					return a
				}
			},
		})))
	}
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
