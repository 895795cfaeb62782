package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quaver/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past conversion batches",
	}
	cmd.AddCommand(newHistoryListCommand(ctx))
	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func withHistoryStore(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryStore(ctx, func(store *history.Store) error {
				batches, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(batches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no recorded batches")
					return nil
				}
				rows := make([][]string, 0, len(batches))
				for _, batch := range batches {
					rows = append(rows, []string{
						batch.BatchID,
						batch.StartedAt.Local().Format("2006-01-02 15:04"),
						batch.Format,
						batch.Quality,
						string(batch.Outcome),
						fmt.Sprintf("%d/%d", batch.Converted, batch.TotalFiles),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Batch", "Started", "Format", "Quality", "Outcome", "Converted"},
					rows,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum batches to list (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show per-file results for one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryStore(ctx, func(store *history.Store) error {
				files, err := store.Files(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no files recorded for that batch")
					return nil
				}
				rows := make([][]string, 0, len(files))
				for _, file := range files {
					rows = append(rows, []string{
						file.SourcePath,
						file.OutputPath,
						string(file.Disposition),
						file.Detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Source", "Output", "Result", "Detail"},
					rows,
				))
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete batches older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.History.RetentionDays
			}
			if days <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "retention disabled; nothing pruned")
				return nil
			}
			return withHistoryStore(ctx, func(store *history.Store) error {
				cutoff := time.Now().AddDate(0, 0, -days)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d batch(es) older than %d days\n", removed, days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention window in days (defaults to history.retention_days)")
	return cmd
}
