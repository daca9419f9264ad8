package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// pidFilePath matches the Python original's worker_manager.py path.
const pidFilePath = ".data/queuectl_workers.pid"

// writePIDFile records one pid per line, overwriting any prior file.
func writePIDFile(pids []int) error {
	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0o755); err != nil {
		return fmt.Errorf("create pid file dir: %w", err)
	}
	var sb strings.Builder
	for _, pid := range pids {
		fmt.Fprintln(&sb, pid)
	}
	return os.WriteFile(pidFilePath, []byte(sb.String()), 0o644)
}

// readPIDFile returns the recorded pids, or an empty slice if the pid
// file does not exist.
func readPIDFile() ([]int, error) {
	f, err := os.Open(pidFilePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open pid file: %w", err)
	}
	defer f.Close()

	var pids []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, scanner.Err()
}

func removePIDFile() error {
	err := os.Remove(pidFilePath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
