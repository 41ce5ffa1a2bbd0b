package main

import (
	"log/slog"
	"os"

	"github.com/docmill/bake/internal"
	"github.com/docmill/bake/internal/cli"
)

// The entry point for the bake CLI.
//
// Installs the process logger and executes the root command. If any error
// occurs during execution, it exits with a non-zero code.
func main() {
	slog.SetDefault(cli.Logger())

	slog.Debug("build", "version", internal.VersionString())

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
