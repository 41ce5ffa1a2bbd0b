package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/docmill/bake/internal"
)

// Level of the process logger, adjusted after flag parsing.
var logLevel = new(slog.LevelVar)

// Represents the root command for the bake CLI.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Build   BuildCmd   `cmd:"" default:"withargs" help:"Build the pipeline's image."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Builds container images for Python services.\n\nCompiles a pipeline definition into builder and runtime stages, executes them against containerd, and exports the result as an OCI image archive."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Creates the process logger.
//
// The level is held in a [slog.LevelVar] so flag parsing can adjust it
// after the logger is already installed as the default.
func Logger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler.WithGroup(internal.Name))
}

// Adjusts the global log level based on CLI flags.
func configureLogger() {
	switch {
	case RootCmd.Debug:
		logLevel.Set(slog.LevelDebug)
	case RootCmd.Quiet:
		logLevel.Set(slog.LevelWarn)
	default:
		logLevel.Set(slog.LevelInfo)
	}
}
