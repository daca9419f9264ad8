package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and manage the dead letter queue",
}

var dlqListLimit int
var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List DLQ entries, newest first",
	RunE:  runDLQList,
}

var dlqRetrySameID bool
var dlqRetryCmd = &cobra.Command{
	Use:   "retry <dlq_id>",
	Short: "Re-enqueue a DLQ entry as a fresh pending job",
	Args:  cobra.ExactArgs(1),
	RunE:  runDLQRetry,
}

var (
	dlqPurgeOlderThan int
	dlqPurgeForce     bool
)
var dlqPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete DLQ entries older than --older-than days, or all entries without it (requires --force)",
	RunE:  runDLQPurge,
}

func init() {
	dlqListCmd.Flags().IntVar(&dlqListLimit, "limit", 50, "maximum rows to return")
	dlqRetryCmd.Flags().BoolVar(&dlqRetrySameID, "same-id", false, "reuse the original job id instead of generating a new one")
	dlqPurgeCmd.Flags().IntVar(&dlqPurgeOlderThan, "older-than", 0, "only purge entries moved to the DLQ more than this many days ago (0 = all)")
	dlqPurgeCmd.Flags().BoolVar(&dlqPurgeForce, "force", false, "required to confirm the purge")

	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	dlqCmd.AddCommand(dlqPurgeCmd)
}

func runDLQList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := newQueueManager(s).ListDLQ(ctx, dlqListLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s\toriginal=%s\tattempts=%d\tmoved_at=%s\terror=%q\t%s\n",
			e.ID, e.OriginalJobID, e.Attempts, e.MovedAt.Format(time.RFC3339), e.LastError, e.Command)
	}
	return nil
}

func runDLQRetry(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	defaultMaxRetries, err := cfg.GetUint32(ctx, "max_retries", 3)
	if err != nil {
		return err
	}

	id, err := newQueueManager(s).RetryFromDLQ(ctx, args[0], dlqRetrySameID, defaultMaxRetries)
	if err != nil {
		return fmt.Errorf("dlq retry: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runDLQPurge(cmd *cobra.Command, args []string) error {
	if !dlqPurgeForce {
		return fmt.Errorf("dlq purge: --force is required")
	}

	ctx := cmd.Context()
	s, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var olderThan *int
	if dlqPurgeOlderThan > 0 {
		olderThan = &dlqPurgeOlderThan
	}
	n, err := newQueueManager(s).PurgeDLQ(ctx, olderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries\n", n)
	return nil
}
