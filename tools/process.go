package tools

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/travofoz/T-5000/errors"
)

type processTools struct {
	timeout time.Duration
}

type listProcessesArgs struct {
	Filter string `json:"filter,omitempty" desc:"Optional substring to filter processes by command name"`
}

func (p *processTools) listProcesses(ctx context.Context, args map[string]interface{}) (string, error) {
	argv := []string{"ps", "aux"}
	if filter, ok := args["filter"].(string); ok && filter != "" {
		argv = []string{"pgrep", "-a", "-f", filter}
	}
	return runExternal(ctx, "list_processes", argv, p.timeout)
}

type killProcessArgs struct {
	PID int `json:"pid" desc:"Process ID to terminate"`
}

func (p *processTools) killProcess(ctx context.Context, args map[string]interface{}) (string, error) {
	raw, ok := args["pid"]
	if !ok {
		return "", errors.New("missing required argument 'pid'")
	}
	var pid int
	switch v := raw.(type) {
	case float64:
		pid = int(v)
	case int:
		pid = v
	default:
		return "", errors.New("argument 'pid' must be an integer, got %T", raw)
	}
	if pid <= 1 {
		return "", errors.New("refusing to kill pid %d", pid)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return "", errors.Wrapf(err, "failed to signal pid %d", pid)
	}
	return fmt.Sprintf("Sent SIGTERM to process %d.", pid), nil
}
