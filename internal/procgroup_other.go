//go:build !unix

package internal

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}
