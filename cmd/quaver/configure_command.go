package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quaver/internal/settings"
)

func newConfigureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Pick per-format quality through kdialog menus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flow := settings.NewFlow(cfg, settings.WithLogger(ctx.logger()))
			changed, err := flow.Run(cmd.Context())
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintln(cmd.OutOrStdout(), "settings saved")
			}
			return nil
		},
	}
}
