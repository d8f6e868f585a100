// Package main provides the entry point for the mastermap CLI tool.
package main

import (
	"context"
	"os"

	"github.com/agentstation/mastermap/cmd/mastermap/app"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	err = application.Execute(ctx, os.Args[1:])

	// The signal context may already be cancelled; give shutdown a fresh one.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil {
		application.Logger().Error().Err(shutdownErr).Msg("shutdown failed")
	}
	if errors.IsCanceled(err) {
		application.Logger().Warn().Err(err).Msg("interrupted")
		os.Exit(130)
	}
	if err != nil {
		app.ExitOnError(err)
	}
}
