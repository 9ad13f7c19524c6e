package steamcmd

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
)

// RunResult captures one subprocess invocation.
type RunResult struct {
	ExitCode int
	Output   string
	PID      int
}

// RunFunc executes the external tool and streams each output line through
// onLine. Implementations must honor ctx cancellation by killing the
// process tree.
type RunFunc func(ctx context.Context, exe string, args []string, onLine func(string)) (RunResult, error)

// Run is the default RunFunc. The process is placed in its own group (or
// hidden window job on Windows) so a later KillTree can terminate every
// descendant.
func Run(ctx context.Context, exe string, args []string, onLine func(string)) (RunResult, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error { return killCmdTree(cmd) }

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return RunResult{}, err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return RunResult{}, err
	}
	res := RunResult{PID: cmd.Process.Pid}

	var out strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		out.WriteString(line)
		out.WriteByte('\n')
		if onLine != nil {
			onLine(line)
		}
	}

	err = cmd.Wait()
	res.Output = out.String()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
