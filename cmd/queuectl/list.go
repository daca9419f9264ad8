package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/job"
	"github.com/queuectl/queuectl/store"
)

var (
	listState string
	listLimit int
	listSince string
	listSort  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "filter by state: pending, processing, completed, failed")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum rows to return")
	listCmd.Flags().StringVar(&listSince, "since", "", "only jobs created at or after this RFC3339 timestamp")
	listCmd.Flags().StringVar(&listSort, "sort", "created", "sort order: created, updated, priority")
}

func runList(cmd *cobra.Command, args []string) error {
	filter := store.ListFilter{Limit: listLimit}

	if listState != "" {
		status, err := job.ParseStatus(listState)
		if err != nil {
			return fmt.Errorf("list: %w: %v", store.ErrBadSpec, err)
		}
		filter.Status = status
	}
	if listSince != "" {
		since, err := time.Parse(time.RFC3339, listSince)
		if err != nil {
			return fmt.Errorf("list: invalid --since %q: %w", listSince, store.ErrBadSpec)
		}
		filter.Since = &since
	}
	switch listSort {
	case "updated":
		filter.Sort = store.SortUpdatedDesc
	case "priority":
		filter.Sort = store.SortPriority
	case "created":
		filter.Sort = store.SortCreatedDesc
	default:
		filter.Sort = store.SortNone
	}

	ctx := cmd.Context()
	s, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	jobs, err := newQueueManager(s).List(ctx, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, j := range jobs {
		fmt.Fprintf(out, "%s\t%s\t%s\tattempts=%d\tpriority=%d\t%s\n",
			j.ID, j.Status, j.CreatedAt.Format(time.RFC3339), j.Attempts, j.Priority, j.Command)
	}
	return nil
}
