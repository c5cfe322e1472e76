package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/portgraph/internal/infrastructure/logging"
)

func newConfigCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd.Context(), root, logging.NewBootstrap(0))
			if err != nil {
				return newCommandError("show settings", "loading settings", err, "Check the file passed with --config and the --log-level value.")
			}
			data, err := config.Marshal(settings)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	return cmd
}
