package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quaver/internal/format"
	"quaver/internal/quality"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported output formats and the current quality selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			selection := quality.NewStore(cfg.Paths.QualityFile).Load()

			rows := make([][]string, 0, len(format.All()))
			for _, def := range format.All() {
				tokens := make([]string, 0, len(def.Options))
				for _, opt := range def.Options {
					tokens = append(tokens, opt.Token)
				}
				rows = append(rows, []string{
					def.Key,
					def.Label,
					def.Extension,
					selection.Resolve(def.Key),
					strings.Join(tokens, ", "),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Format", "Label", "Extension", "Current", "Qualities"},
				rows,
			))
			return nil
		},
	}
}
