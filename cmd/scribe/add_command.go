package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/ledger"
	"scribe/internal/workitem"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Enqueue work items",
	}
	addCmd.AddCommand(newAddArticleCommand(ctx))
	addCmd.AddCommand(newAddEpisodeCommand(ctx))
	return addCmd
}

func newAddArticleCommand(ctx *commandContext) *cobra.Command {
	var priority int

	cmd := &cobra.Command{
		Use:   "article <url>",
		Short: "Enqueue an article by URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := workitem.NewArticle(args[0], priority)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *ledger.Store) error {
				record, err := store.Enqueue(cmd.Context(), item)
				if err != nil {
					return err
				}
				reportEnqueued(cmd, record)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "Queue priority (higher first)")
	return cmd
}

func newAddEpisodeCommand(ctx *commandContext) *cobra.Command {
	var episodeURL string
	var priority int

	cmd := &cobra.Command{
		Use:   "episode <podcast> <title>",
		Short: "Enqueue a podcast episode by show and episode title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := workitem.NewPodcastEpisode(args[0], args[1], episodeURL, priority)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *ledger.Store) error {
				record, err := store.Enqueue(cmd.Context(), item)
				if err != nil {
					return err
				}
				reportEnqueued(cmd, record)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&episodeURL, "url", "", "Episode page URL, if known")
	cmd.Flags().IntVar(&priority, "priority", 0, "Queue priority (higher first)")
	return cmd
}

func reportEnqueued(cmd *cobra.Command, record *ledger.JobRecord) {
	out := cmd.OutOrStdout()
	if record.Status.IsTerminal() {
		fmt.Fprintf(out, "Already settled as %s: %s\n", record.Status, record.WorkItemID)
		return
	}
	fmt.Fprintf(out, "Enqueued %s (%s)\n", record.WorkItem().Title(), record.WorkItemID)
}
