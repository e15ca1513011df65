// Package main provides the entry point for the slipway CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrz1836/slipway/internal/cli"
)

// Version information set at build time via ldflags.
var (
	version = "" //nolint:gochecknoglobals // set by ldflags
	commit  = "" //nolint:gochecknoglobals // set by ldflags
	date    = "" //nolint:gochecknoglobals // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		os.Exit(cli.ExitCodeForError(err))
	}
}
