package main

import (
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/portgraph/internal/domain/port"
	"github.com/alexisbeaulieu97/portgraph/internal/tui"
)

type repairOptions struct {
	choice  string
	metrics bool
}

func newRepairCmd(root *rootFlags) *cobra.Command {
	opts := &repairOptions{}

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Force a connection onto a busy output and resolve it through guided repair",
		Long: "repair connects numbers.out to left.in and then asks for numbers.out -> right.in.\n" +
			"The refused connection is forced and a prompt decides whether to keep it, insert a\n" +
			"fan-out stage or revert. The prompt is interactive when attached to a terminal;\n" +
			"otherwise the configured repair.choice (or --choice) answers it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.choice, "choice", "", "Answer the prompt with keep, insert_fan_out, revert or dismissed")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print the collected metrics afterwards")

	return cmd
}

func runRepair(cmd *cobra.Command, root *rootFlags, opts *repairOptions) error {
	presenter, err := choosePresenter(cmd, opts)
	if err != nil {
		return newCommandError("repair", "reading --choice", err, "Use one of keep, insert_fan_out, revert or dismissed.")
	}

	app, err := newAppContext(cmd, root, "repair")
	if err != nil {
		return err
	}

	demo, err := app.Service.RunRepairDemo(app.Ctx, presenter)
	out := cmd.OutOrStdout()
	renderRepair(out, demo)
	if err != nil {
		return newCommandError("repair", "resolving the refused connection", err, "The previous topology has been restored; try another choice.")
	}
	if opts.metrics {
		return renderMetrics(out, app.Service.Runtime().Metrics)
	}
	return nil
}

// choosePresenter returns the presenter answering the repair prompt. A nil
// presenter leaves the answer to the configured repair choice.
func choosePresenter(cmd *cobra.Command, opts *repairOptions) (port.RepairPresenter, error) {
	if opts.choice != "" {
		choice, err := port.ParseRepairChoice(opts.choice)
		if err != nil {
			return nil, err
		}
		return port.AutoPresenter{Choice: choice}, nil
	}

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	if isTerminal(in) && isTerminal(out) {
		return tui.Presenter{Input: in, Output: out}, nil
	}
	return nil, nil
}
