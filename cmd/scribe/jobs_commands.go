package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List jobs in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status ledger.Status
			if statusFilter != "" {
				parsed, ok := ledger.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				status = parsed
			}
			return ctx.withStore(func(_ *config.Config, store *ledger.Store) error {
				records, err := store.List(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						record.WorkItemID,
						string(record.Kind),
						truncate(record.WorkItem().Title(), 48),
						string(record.Status),
						strconv.Itoa(record.Attempts),
						record.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Kind", "Title", "Status", "Attempts", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, in_progress, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of jobs to list")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <work-item-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *ledger.Store) error {
				record, err := store.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Work item:  %s\n", record.WorkItemID)
				fmt.Fprintf(out, "Kind:       %s\n", record.Kind)
				fmt.Fprintf(out, "Title:      %s\n", record.WorkItem().Title())
				fmt.Fprintf(out, "Status:     %s\n", record.Status)
				fmt.Fprintf(out, "Attempts:   %d\n", record.Attempts)
				fmt.Fprintf(out, "Created:    %s\n", record.CreatedAt.Local().Format(time.DateTime))
				fmt.Fprintf(out, "Updated:    %s\n", record.UpdatedAt.Local().Format(time.DateTime))
				if record.Accepted != nil {
					fmt.Fprintf(out, "Source:     %s (rank %d, %s)\n",
						record.Accepted.SourceDomain, record.Accepted.Rank, record.Accepted.Method)
					fmt.Fprintf(out, "URL:        %s\n", record.Accepted.URL)
				}
				if record.TextRef != "" {
					fmt.Fprintf(out, "Artifact:   %s\n", record.TextRef)
				}
				if record.LastError != "" {
					fmt.Fprintf(out, "Last error: %s\n", record.LastError)
				}
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <work-item-id>",
		Short: "Move a failed job back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				cooldown := time.Duration(cfg.Pipeline.RetryCooldown) * time.Second
				record, err := store.RetryFailed(cmd.Context(), args[0], cooldown)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s\n", record.WorkItemID)
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate ledger counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *ledger.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Pending", strconv.Itoa(stats.Pending)},
					{"In progress", strconv.Itoa(stats.InProgress)},
					{"Completed", strconv.Itoa(stats.Completed)},
					{"Failed", strconv.Itoa(stats.Failed)},
					{"Total", strconv.Itoa(stats.Total())},
					{"Success rate", fmt.Sprintf("%.0f%%", stats.SuccessRate*100)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Metric", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
