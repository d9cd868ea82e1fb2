//go:build !windows

package proctree

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// pgrepLister lists direct children via pgrep's parent filter.
type pgrepLister struct{}

// NewLister returns the native child lister for this platform.
func NewLister() Lister {
	return pgrepLister{}
}

func (pgrepLister) Children(ctx context.Context, pid int) ([]int, error) {
	out, err := exec.CommandContext(ctx, "pgrep", "-P", strconv.Itoa(pid)).Output()
	if err != nil {
		// pgrep exits 1 when nothing matches, which is the common case.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("pgrep -P %d: %w", pid, err)
	}
	return parsePids(string(out)), nil
}

// parsePids extracts one pid per line, skipping anything non-numeric.
func parsePids(out string) []int {
	var pids []int
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
