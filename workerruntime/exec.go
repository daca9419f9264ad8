package workerruntime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/queuectl/queuectl/job"
)

const stderrTruncateLen = 500

// execResult is the outcome of running one Job's command, already
// shaped into either a success or the exact failure message of
// §4.4.1's outcome table.
type execResult struct {
	failed  bool
	message string
}

// runCommand runs j.Command in a shell, honoring the effective
// timeout (j.TimeoutSeconds if set, else defaultTimeout if nonzero,
// else unbounded), and maps the outcome per §4.4.1.
//
// The child runs in its own process group (POSIX) so that a timeout
// kills the whole group it may have spawned, not just the shell
// itself — grounded directly in the original worker's
// subprocess.run(..., shell=True, timeout=timeout), whose timeout
// semantics also terminate the whole process tree.
func runCommand(ctx context.Context, j *job.Job, defaultTimeout time.Duration) execResult {
	timeout := defaultTimeout
	if j.TimeoutSeconds != nil {
		timeout = time.Duration(*j.TimeoutSeconds) * time.Second
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", j.Command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	if err == nil {
		return execResult{failed: false}
	}

	if timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return execResult{
			failed:  true,
			message: fmt.Sprintf("Command timed out after %d seconds", int(timeout.Seconds())),
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return execResult{
			failed:  true,
			message: fmt.Sprintf("Command failed with exit code %d: %s", exitErr.ExitCode(), truncateTail(combined.String())),
		}
	}

	return execResult{
		failed:  true,
		message: fmt.Sprintf("Execution error: %v", err),
	}
}

func truncateTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTruncateLen {
		return s
	}
	return s[:stderrTruncateLen]
}
