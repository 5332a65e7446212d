package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/div9851/hako/internal/state"
)

var forceDelete bool

var deleteCmd = &cobra.Command{
	Use:   "delete <container-id>",
	Short: "Delete resources held by the container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		c, err := state.Load(runtimeRoot, id)
		if err != nil {
			if forceDelete {
				return nil
			}
			return fmt.Errorf("load container state: %w", err)
		}

		if c.Status == state.StatusRunning {
			// The recorded status is not updated when init dies (e.g. after
			// `kill`), so only a still-existing init process counts as running.
			proc, err := os.FindProcess(c.InitPID)
			if err == nil && proc.Signal(syscall.Signal(0)) == nil {
				if !forceDelete {
					return fmt.Errorf("container %s is running: use --force to delete anyway", id)
				}
				_ = proc.Signal(syscall.SIGKILL)
			}
		}

		if err := state.Remove(runtimeRoot, id); err != nil {
			return fmt.Errorf("remove state: %w", err)
		}

		log.WithField("id", id).Info("container deleted")
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&forceDelete, "force", false, "delete even if the container is still running")
}
