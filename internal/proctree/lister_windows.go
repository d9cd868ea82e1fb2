//go:build windows

package proctree

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// wmicLister lists direct children by ParentProcessId via the process tree
// query interface.
type wmicLister struct{}

// NewLister returns the native child lister for this platform.
func NewLister() Lister {
	return wmicLister{}
}

func (wmicLister) Children(ctx context.Context, pid int) ([]int, error) {
	out, err := exec.CommandContext(ctx,
		"wmic", "process",
		"where", fmt.Sprintf("(ParentProcessId=%d)", pid),
		"get", "ProcessId",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("wmic children of %d: %w", pid, err)
	}

	var pids []int
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "ProcessId") {
			continue
		}
		child, err := strconv.Atoi(line)
		if err != nil || child <= 0 {
			continue
		}
		pids = append(pids, child)
	}
	return pids, nil
}
