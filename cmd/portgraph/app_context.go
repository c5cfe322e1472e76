package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/portgraph/internal/app/graph"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/logging"
)

// AppContext bundles the services built for one command invocation.
type AppContext struct {
	Ctx      context.Context
	Settings config.Settings
	Service  *graph.Service
}

// loadSettings reads the settings named by the root flags and applies the
// command-line overrides. Entries logged before the runtime logger exists are
// held by boot.
func loadSettings(ctx context.Context, flags *rootFlags, boot *logging.Bootstrap) (config.Settings, error) {
	settings, err := config.Load(ctx, flags.configPath, boot.Logger())
	if err != nil {
		return config.Settings{}, err
	}
	if flags.logLevel != "" {
		settings.LogLevel = flags.logLevel
	}
	if flags.verbose {
		settings.LogLevel = "debug"
	}
	if err := config.Validate(settings); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func newAppContext(cmd *cobra.Command, flags *rootFlags, operation string) (*AppContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.NewCorrelatedContext(ctx)

	boot := logging.NewBootstrap(0)
	settings, err := loadSettings(ctx, flags, boot)
	if err != nil {
		return nil, newCommandError(operation, "loading settings", err, "Check the file passed with --config and the --log-level value.")
	}

	rt, err := settings.Environment(config.RuntimeOptions{LogWriter: cmd.ErrOrStderr()})
	if err != nil {
		return nil, newCommandError(operation, "building the runtime", err, "Check the metrics and cache settings.")
	}
	boot.Attach(rt.Logger.With("component", "cli"))

	return &AppContext{Ctx: ctx, Settings: settings, Service: graph.NewService(rt)}, nil
}

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error {
	return e.cause
}
