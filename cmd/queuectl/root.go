package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfgpkg "github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/queue"
	"github.com/queuectl/queuectl/store"
	"github.com/queuectl/queuectl/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:           "queuectl",
	Short:         "Durable shell-command job queue",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "path to the sqlite database file (default: .data/queuectl.db)")
	rootCmd.PersistentFlags().String("log-dir", "", "directory to write worker logs to (default: stderr only)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.SetEnvPrefix("queuectl")
	viper.AutomaticEnv()

	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dlqCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command and returns a process exit code
// derived from the error taxonomy of §7.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "queuectl:", err)
		return exitCodeFor(err)
	}
	return 0
}

// exitCodeFor maps a store-taxonomy error to a process exit code. The
// exact non-zero values are this implementation's own convention:
// spec.md only requires "0 on success, non-zero on failure".
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, store.ErrBadSpec):
		return 2
	case errors.Is(err, store.ErrDuplicateID):
		return 3
	case errors.Is(err, store.ErrNotFound):
		return 4
	case errors.Is(err, store.ErrUnavailable):
		return 5
	case errors.Is(err, store.ErrCorrupted):
		return 6
	default:
		return 1
	}
}

// dbPath resolves the effective database path: the --db flag / QUEUECTL_DB
// env var if set, else the hardcoded db_path default. It is resolved via
// viper before any store exists, so a db_path stored in the config table
// is not consulted, per SPEC_FULL.md §6.
func dbPath() string {
	if p := viper.GetString("db"); p != "" {
		return p
	}
	return cfgpkg.Defaults["db_path"]
}

// openStore opens the sqlite store at the effective db path, creating
// its schema if necessary, and returns it alongside a config Manager
// over it.
func openStore(ctx context.Context) (*sqlite.Store, *cfgpkg.Manager, error) {
	path := dbPath()
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open db %s: %w", path, err)
	}
	if err := sqlite.InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init schema %s: %w", path, err)
	}
	s := sqlite.New(db)
	return s, cfgpkg.New(s), nil
}

func newQueueManager(s store.Store) *queue.Manager {
	return queue.New(s)
}
