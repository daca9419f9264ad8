package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print queue counts, active workers, and recent failures",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q := newQueueManager(s)
	counts, err := q.Counts(ctx)
	if err != nil {
		return err
	}

	staleSec, err := cfg.GetUint32(ctx, "stale_worker_timeout_seconds", 30)
	if err != nil {
		return err
	}
	workers, err := s.ActiveWorkers(ctx, time.Duration(staleSec)*time.Second)
	if err != nil {
		return err
	}
	failures, err := q.RecentFailures(ctx, 10)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "counts:")
	fmt.Fprintf(out, "  pending:    %d\n", counts.Pending)
	fmt.Fprintf(out, "  processing: %d\n", counts.Processing)
	fmt.Fprintf(out, "  completed:  %d\n", counts.Completed)
	fmt.Fprintf(out, "  failed:     %d\n", counts.Failed)
	fmt.Fprintf(out, "  dlq:        %d\n", counts.DLQ)

	fmt.Fprintf(out, "active workers: %d\n", len(workers))
	for _, w := range workers {
		fmt.Fprintf(out, "  %s pid=%d host=%s version=%s last_heartbeat=%s\n",
			w.WorkerID, w.PID, w.Hostname, w.Version, w.LastHeartbeatAt.Format(time.RFC3339))
	}

	fmt.Fprintf(out, "recent failures: %d\n", len(failures))
	for _, j := range failures {
		fmt.Fprintf(out, "  %s attempts=%d error=%q\n", j.ID, j.Attempts, j.LastError)
	}
	return nil
}
