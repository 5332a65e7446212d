package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/div9851/hako/internal/bringup"
	"github.com/div9851/hako/internal/specfile"
)

var (
	bundlePath    string
	consoleSocket string
	pidFilePath   string
)

var createCmd = &cobra.Command{
	Use:   "create <container-id>",
	Short: "Create a container from an OCI bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		spec, err := specfile.Load(bundlePath)
		if err != nil {
			return err
		}

		log.WithField("id", id).Info("creating container")

		result, err := bringup.Create(context.Background(), bringup.CreateOptions{
			ContainerID:       id,
			Bundle:            bundlePath,
			Spec:              spec,
			ConsoleSocketPath: consoleSocket,
			PidFilePath:       pidFilePath,
			RuntimeRoot:       runtimeRoot,
		})
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{"id": id, "pid": result.InitPID}).Info("container created")
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&bundlePath, "bundle", "b", ".", "path to the OCI bundle")
	createCmd.Flags().StringVar(&consoleSocket, "console-socket", "", "path to a unix socket that will receive the PTY master")
	createCmd.Flags().StringVar(&pidFilePath, "pid-file", "", "path to write the container's init PID")
}
