//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// detachServer starts the server without a console window, outside the CLI's Ctrl+C group
func detachServer(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
		HideWindow:    true,
	}
}
