package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/queuectl/queuectl/sweeper"
	"github.com/queuectl/queuectl/workerruntime"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage worker processes",
}

var (
	workerCount      int
	workerDetach     bool
	workerPollMs     int
	workerStopGrace  time.Duration
	workerRunVersion = "dev"
)

var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the recovery sweep once, then start N worker processes",
	RunE:  runWorkerStart,
}

var workerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every worker process recorded in the pid file",
	RunE:  runWorkerStop,
}

// workerRunCmd is the hidden subcommand workerStart re-execs itself
// as, one process per worker, matching the Python original's
// multiprocessing.Process target being the single-worker entry point.
var workerRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run a single worker loop in the foreground (used internally by 'worker start')",
	Hidden: true,
	RunE:   runWorkerRun,
}

func init() {
	workerStartCmd.Flags().IntVar(&workerCount, "count", 1, "number of worker processes to start")
	workerStartCmd.Flags().BoolVar(&workerDetach, "detach", false, "spawn workers and return immediately instead of waiting on them")
	workerStartCmd.Flags().IntVar(&workerPollMs, "poll-interval-ms", 0, "override poll_interval_ms for the spawned workers (0 = use config)")
	workerRunCmd.Flags().IntVar(&workerPollMs, "poll-interval-ms", 0, "override poll_interval_ms (0 = use config)")
	workerStopCmd.Flags().DurationVar(&workerStopGrace, "grace", 5*time.Second, "time to wait after SIGTERM before SIGKILL")

	workerCmd.AddCommand(workerStartCmd)
	workerCmd.AddCommand(workerStopCmd)
	workerCmd.AddCommand(workerRunCmd)
}

func runWorkerStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger("")

	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}

	staleTimeout, err := cfg.GetDuration(ctx, "stale_worker_timeout_seconds", time.Second)
	if err != nil {
		s.Close()
		return err
	}
	backoffBase, err := cfg.GetUint32(ctx, "backoff_base", 2)
	if err != nil {
		s.Close()
		return err
	}

	sw := sweeper.New(s, sweeper.Config{StaleTimeout: staleTimeout, BackoffBase: backoffBase}, log)
	recovered, err := sw.Run(ctx)
	if err != nil {
		s.Close()
		return fmt.Errorf("worker start: recovery sweep: %w", err)
	}
	log.Info("recovery sweep complete", "recovered", recovered)
	s.Close()

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("worker start: resolve executable: %w", err)
	}

	pids := make([]int, 0, workerCount)
	procs := make([]*exec.Cmd, 0, workerCount)
	for i := 0; i < workerCount; i++ {
		runArgs := []string{"worker", "run"}
		if p := viperGlobalDBFlag(cmd); p != "" {
			runArgs = append(runArgs, "--db", p)
		}
		if workerPollMs > 0 {
			runArgs = append(runArgs, "--poll-interval-ms", fmt.Sprint(workerPollMs))
		}
		child := exec.Command(self, runArgs...)
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			return fmt.Errorf("worker start: spawn worker %d: %w", i, err)
		}
		procs = append(procs, child)
		pids = append(pids, child.Process.Pid)
	}

	if err := writePIDFile(pids); err != nil {
		return fmt.Errorf("worker start: write pid file: %w", err)
	}
	log.Info("workers started", "count", len(pids), "pids", pids)

	if workerDetach {
		for _, p := range procs {
			_ = p.Process.Release()
		}
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	for _, p := range procs {
		p := p
		g.Go(func() error {
			return p.Wait()
		})
	}
	err = g.Wait()
	_ = removePIDFile()
	if err != nil {
		return fmt.Errorf("worker start: %w", err)
	}
	return nil
}

func runWorkerStop(cmd *cobra.Command, args []string) error {
	log := newLogger("")
	pids, err := readPIDFile()
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		log.Info("no recorded worker processes")
		return nil
	}

	for _, pid := range pids {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			log.Warn("sigterm failed", "pid", pid, "err", err)
		}
	}

	deadline := time.Now().Add(workerStopGrace)
	for _, pid := range pids {
		for time.Now().Before(deadline) && processAlive(pid) {
			time.Sleep(50 * time.Millisecond)
		}
		if processAlive(pid) {
			log.Warn("worker still alive after grace period, sending sigkill", "pid", pid)
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
	}

	if err := removePIDFile(); err != nil {
		return fmt.Errorf("worker stop: remove pid file: %w", err)
	}
	log.Info("workers stopped", "count", len(pids))
	return nil
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

func runWorkerRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger("")

	s, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	pollMs, err := cfg.GetUint32(ctx, "poll_interval_ms", 500)
	if err != nil {
		return err
	}
	if workerPollMs > 0 {
		pollMs = uint32(workerPollMs)
	}
	heartbeatSec, err := cfg.GetUint32(ctx, "worker_heartbeat_interval_seconds", 5)
	if err != nil {
		return err
	}
	backoffBase, err := cfg.GetUint32(ctx, "backoff_base", 2)
	if err != nil {
		return err
	}
	maxProcs, err := cfg.GetUint32(ctx, "max_concurrent_processes_per_worker", 1)
	if err != nil {
		return err
	}
	defaultTimeoutSec, err := cfg.GetOptionalUint32(ctx, "default_timeout_seconds")
	if err != nil {
		return err
	}
	var defaultTimeout time.Duration
	if defaultTimeoutSec != nil {
		defaultTimeout = time.Duration(*defaultTimeoutSec) * time.Second
	}
	hostname, _ := os.Hostname()

	rt := workerruntime.New(s, workerruntime.Config{
		PollInterval:           time.Duration(pollMs) * time.Millisecond,
		HeartbeatInterval:      time.Duration(heartbeatSec) * time.Second,
		BackoffBase:            backoffBase,
		DefaultTimeout:         defaultTimeout,
		MaxConcurrentProcesses: int64(maxProcs),
		Hostname:               hostname,
		Version:                workerRunVersion,
	}, log)

	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("worker run: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	<-sigCtx.Done()

	return rt.Stop(workerStopGrace)
}

// viperGlobalDBFlag forwards an explicit --db to a spawned worker so
// it opens the same database file, even though viper/env would
// already propagate QUEUECTL_DB to the child process.
func viperGlobalDBFlag(cmd *cobra.Command) string {
	v, _ := cmd.Flags().GetString("db")
	return v
}
