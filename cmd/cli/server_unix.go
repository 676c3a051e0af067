//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// detachServer starts the server in its own session so it outlives the terminal
func detachServer(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
