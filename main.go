//go:build linux

package main

import (
	"os"

	"github.com/div9851/hako/cmd"
	"github.com/div9851/hako/internal/bringup"
)

// main intercepts the re-exec stage argument before cobra ever parses a
// flag: the bring-up driver re-invokes this same binary as its own
// intermediate and init stages, and those invocations must never go
// through the normal command-line surface.
func main() {
	if len(os.Args) > 2 && os.Args[1] == bringup.StageArg {
		bringup.RunStage(os.Args[2])
		return
	}
	cmd.Execute()
}
