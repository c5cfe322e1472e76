package main

import (
	"github.com/spf13/cobra"
)

type demoOptions struct {
	metrics bool
}

func newDemoCmd(root *rootFlags) *cobra.Command {
	opts := &demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk a producer and a consumer through connect, type checks and disconnect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print the collected metrics afterwards")

	return cmd
}

func runDemo(cmd *cobra.Command, root *rootFlags, opts *demoOptions) error {
	app, err := newAppContext(cmd, root, "run the demo")
	if err != nil {
		return err
	}

	report, err := app.Service.RunDemo(app.Ctx)
	if err != nil {
		return newCommandError("run the demo", "walking the scenario", err, "Run again with --verbose to see every port event.")
	}

	out := cmd.OutOrStdout()
	renderDemo(out, report)
	if opts.metrics {
		return renderMetrics(out, app.Service.Runtime().Metrics)
	}
	return nil
}
