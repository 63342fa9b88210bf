//go:build windows

package producer

import "os/exec"

// The default exec.Cmd cancellation kills the process; children that keep the
// output pipes open are cut off by WaitDelay.
func configureProcess(cmd *exec.Cmd) {}
