//go:build !windows

package steamcmd

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr puts the child into its own process group so the whole tree
// can be signalled at once.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func killCmdTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return KillTree(cmd.Process.Pid)
}

// KillTree terminates the process group rooted at pid. A group that is
// already gone is not an error.
func KillTree(pid int) error {
	if pid <= 0 {
		return nil
	}
	err := unix.Kill(-pid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
