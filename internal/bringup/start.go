//go:build linux

package bringup

import (
	"fmt"

	"github.com/div9851/hako/internal/execsock"
	"github.com/div9851/hako/internal/state"
)

// Start is the client half of the exec rendezvous (C7): it connects to
// the container's exec socket, which unblocks init's accept() and lets it
// proceed to execvp the user command.
func Start(runtimeRoot, containerID string) error {
	c, err := state.Load(runtimeRoot, containerID)
	if err != nil {
		return fmt.Errorf("load container state: %w", err)
	}
	if c.Status != state.StatusCreated {
		return fmt.Errorf("container %s is not in created state (status=%s)", containerID, c.Status)
	}

	path := state.ExecSockPath(runtimeRoot, containerID)
	if err := execsock.Dial(path); err != nil {
		return fmt.Errorf("connect exec socket: %w", err)
	}

	c.Status = state.StatusRunning
	if err := state.Save(runtimeRoot, c); err != nil {
		return fmt.Errorf("save container state: %w", err)
	}
	return nil
}
