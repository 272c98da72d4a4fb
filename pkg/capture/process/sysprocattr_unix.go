//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// detachProcessGroup keeps terminal signals (e.g. Ctrl-C) away from the
// helper; it is stopped through Close instead.
func detachProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
