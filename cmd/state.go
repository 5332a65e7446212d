package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/div9851/hako/internal/state"
)

// ociState is the wire shape `state` prints, matching the subset of the
// OCI runtime state document this core tracks.
type ociState struct {
	OCIVersion string `json:"ociVersion"`
	ID         string `json:"id"`
	Status     string `json:"status"`
	Pid        int    `json:"pid"`
	Bundle     string `json:"bundle"`
}

var stateCmd = &cobra.Command{
	Use:   "state <container-id>",
	Short: "Output the state of a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		c, err := state.Load(runtimeRoot, id)
		if err != nil {
			return fmt.Errorf("load container state: %w", err)
		}

		out := ociState{
			OCIVersion: c.OCIVersion,
			ID:         c.ID,
			Status:     string(c.Status),
			Pid:        c.InitPID,
			Bundle:     c.Bundle,
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
