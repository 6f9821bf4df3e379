package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/travofoz/T-5000/errors"
)

// runExternal executes an external process with an explicit timeout. On
// timeout the subprocess is killed and a timeout-flavored failure string is
// returned; the process is never left running. Non-zero exit codes are
// reported in the formatted result rather than as Go errors, so the model
// sees the full output either way.
func runExternal(ctx context.Context, toolName string, argv []string, timeout time.Duration) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command for tool '%s'", toolName)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return "", errors.New("command timed out after %s: %s", timeout, strings.Join(argv, " "))
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return "", errors.Wrapf(err, "failed to start command '%s'", argv[0])
		}
	}

	rc := cmd.ProcessState.ExitCode()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tool '%s' execution finished (RC=%d). Command: `%s`\n", toolName, rc, strings.Join(argv, " "))
	if rc == 0 {
		sb.WriteString("Status: Success\n")
	} else {
		sb.WriteString("Status: Failed\n")
	}
	if len(output) > 0 {
		fmt.Fprintf(&sb, "Output:\n```\n%s\n```", strings.TrimRight(string(output), "\n"))
	} else {
		sb.WriteString("Output: (empty)")
	}
	return sb.String(), nil
}

type commandTools struct {
	allowed []string
	timeout time.Duration
}

type shellCommandArgs struct {
	Command string `json:"command" desc:"The shell command line to execute"`
}

// runShellCommand executes a command line after checking it against the
// configured allow-list. The command is split on whitespace; no shell
// interpretation happens.
func (c *commandTools) runShellCommand(ctx context.Context, args map[string]interface{}) (string, error) {
	command, err := StringArg(args, "command")
	if err != nil {
		return "", err
	}
	if len(c.allowed) > 0 && !isCommandAllowed(command, c.allowed) {
		return "", errors.New("command '%s' is not in the list of allowed commands", command)
	}
	return runExternal(ctx, "run_shell_command", strings.Fields(command), c.timeout)
}
