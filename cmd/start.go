package cmd

import (
	"github.com/spf13/cobra"

	"github.com/div9851/hako/internal/bringup"
)

var startCmd = &cobra.Command{
	Use:   "start <container-id>",
	Short: "Execute the user-defined process in a created container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := bringup.Start(runtimeRoot, id); err != nil {
			return err
		}
		log.WithField("id", id).Info("container started")
		return nil
	},
}
