// Package cmd wires the cobra CLI surface: global flags shared by every
// subcommand (--root, --log, --log-format, --systemd-cgroup) and the
// state|create|start|kill|delete subcommands themselves.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runtimeRoot   string
	logPath       string
	logFormat     string
	systemdCgroup bool

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:           "hako",
	Short:         "hako is a low-level OCI container runtime",
	Long:          `hako creates, starts, signals, and deletes OCI containers using Linux namespaces, mounts, and pivot_root.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&runtimeRoot, "root", "/run/hako", "path to the runtime state directory")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "/dev/stderr", "path to the log file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text or json)")
	rootCmd.PersistentFlags().BoolVar(&systemdCgroup, "systemd-cgroup", false, "use systemd cgroup manager (accepted, not used by the core)")

	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(deleteCmd)
}

// setupLogging configures the shared logger from the global flags. It
// runs once per invocation, before any subcommand body, so every
// subcommand logs consistently.
func setupLogging() error {
	switch logFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{})
	}

	if logPath == "" || logPath == "/dev/stderr" {
		log.SetOutput(os.Stderr)
		return nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	log.SetOutput(f)
	return nil
}

// Execute runs the root command, exiting non-zero on any failure before
// the user program is execvp-ed.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("hako: command failed")
		os.Exit(1)
	}
}
