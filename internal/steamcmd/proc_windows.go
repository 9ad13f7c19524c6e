//go:build windows

package steamcmd

import (
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

// sysProcAttr hides the console window of the child process.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

func killCmdTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return KillTree(cmd.Process.Pid)
}

// KillTree terminates the process tree rooted at pid via taskkill /T.
// A tree that is already gone is not an error.
func KillTree(pid int) error {
	if pid <= 0 {
		return nil
	}
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid))
	kill.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	// taskkill exits non-zero when the pid no longer exists.
	_ = kill.Run()
	return nil
}
