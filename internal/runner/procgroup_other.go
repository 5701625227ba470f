//go:build !unix

package runner

import "os/exec"

// killProcessGroup is a no-op here; WaitDelay still bounds Run after cancellation.
func killProcessGroup(*exec.Cmd) {}
