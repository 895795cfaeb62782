package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quaver/internal/convert"
	"quaver/internal/deps"
	"quaver/internal/history"
	"quaver/internal/logging"
	"quaver/internal/services/kdialog"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <format> <file>...",
		Short: "Convert audio files to the given format",
		Long: "Convert audio files to the given format using the saved quality " +
			"selection. Progress is shown through a kdialog progress bar; closing " +
			"it cancels the batch. The exit code reports the batch outcome: 0 when " +
			"every file converted, 2 when some failed, 3 when the user cancelled.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			statuses := deps.Check(deps.ForConfig(cfg))
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				dialogs := kdialog.NewCLI(kdialog.WithBinary(cfg.Tools.Kdialog))
				dialogs.Error(cmd.Context(), deps.InstallHint())
				return fmt.Errorf("required tool missing: %s", missing[0].Command)
			}

			opts := []convert.Option{convert.WithLogger(logger)}
			if cfg.History.Enabled {
				store, err := history.Open(cfg.Paths.HistoryDB)
				if err != nil {
					logger.Warn("history unavailable", logging.Error(err))
				} else {
					defer func() { _ = store.Close() }()
					opts = append(opts, convert.WithRecorder(store))
				}
			}

			orchestrator, err := convert.New(cfg, opts...)
			if err != nil {
				return err
			}

			result, err := orchestrator.Run(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}

			converted, failed, skipped := result.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d converted, %d failed, %d skipped\n",
				result.Outcome, converted, failed, skipped)
			if code := result.Outcome.ExitCode(); code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
	return cmd
}
