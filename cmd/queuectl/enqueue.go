package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	enqueueFile    string
	enqueueCommand string
	enqueueID      string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [json]",
	Short: "Enqueue a job from an inline JSON spec, a file, or a bare command",
	Long: `Enqueue accepts exactly one input mode:

  queuectl enqueue '{"command":"echo hi","priority":5}'
  queuectl enqueue --file job.json
  queuectl enqueue --command "echo hi" --id my-job --priority 5

The inline and --file forms take a full job specification object (see
§6). --command builds the minimal {"command": ...} spec on your
behalf, augmented with --id/--priority/--max-retries/--run-at/--timeout
when given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueFile, "file", "", "path to a JSON job specification file")
	enqueueCmd.Flags().StringVar(&enqueueCommand, "command", "", "shell command to run; builds a minimal spec")
	enqueueCmd.Flags().StringVar(&enqueueID, "id", "", "job id override (only with --command)")
	enqueueCmd.Flags().Int32("priority", 0, "job priority, higher runs first (only with --command)")
	enqueueCmd.Flags().Uint32("max-retries", 0, "override the default max_retries (only with --command)")
	enqueueCmd.Flags().String("run-at", "", "RFC3339 timestamp to delay the job until (only with --command)")
	enqueueCmd.Flags().Uint32("timeout", 0, "timeout in seconds (only with --command)")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	specText, err := resolveSpecText(cmd, args)
	if err != nil {
		return err
	}

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

	id, err := newQueueManager(s).ValidateAndEnqueue(ctx, specText, defaultMaxRetries)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

// resolveSpecText enforces that exactly one of the three input modes
// was used and returns the resulting spec JSON text.
func resolveSpecText(cmd *cobra.Command, args []string) (string, error) {
	modes := 0
	if len(args) == 1 {
		modes++
	}
	if enqueueFile != "" {
		modes++
	}
	if enqueueCommand != "" {
		modes++
	}
	if modes != 1 {
		return "", fmt.Errorf("enqueue: exactly one of <json>, --file, or --command is required")
	}

	if len(args) == 1 {
		return args[0], nil
	}
	if enqueueFile != "" {
		data, err := os.ReadFile(enqueueFile)
		if err != nil {
			return "", fmt.Errorf("enqueue: read %s: %w", enqueueFile, err)
		}
		return string(data), nil
	}
	return buildCommandSpec(cmd)
}

func buildCommandSpec(cmd *cobra.Command) (string, error) {
	priority, _ := cmd.Flags().GetInt32("priority")
	maxRetries, _ := cmd.Flags().GetUint32("max-retries")
	runAt, _ := cmd.Flags().GetString("run-at")
	timeout, _ := cmd.Flags().GetUint32("timeout")

	spec := map[string]any{"command": enqueueCommand}
	if enqueueID != "" {
		spec["id"] = enqueueID
	}
	if priority != 0 {
		spec["priority"] = priority
	}
	if cmd.Flags().Changed("max-retries") {
		spec["max_retries"] = maxRetries
	}
	if runAt != "" {
		spec["run_at"] = runAt
	}
	if timeout != 0 {
		spec["timeout_seconds"] = timeout
	}

	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("enqueue: build spec: %w", err)
	}
	return string(data), nil
}
