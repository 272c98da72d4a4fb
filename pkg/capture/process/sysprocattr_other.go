//go:build !unix

package process

import (
	"os/exec"
)

func detachProcessGroup(*exec.Cmd) {}
