package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/div9851/hako/internal/state"
)

// namedSignals covers the signal names an operator is likely to type.
// parseSignal tries a numeric value first; a name that is neither numeric
// nor listed here is rejected.
var namedSignals = map[string]syscall.Signal{
	"SIGTERM": syscall.SIGTERM,
	"TERM":    syscall.SIGTERM,
	"SIGKILL": syscall.SIGKILL,
	"KILL":    syscall.SIGKILL,
	"SIGHUP":  syscall.SIGHUP,
	"HUP":     syscall.SIGHUP,
	"SIGINT":  syscall.SIGINT,
	"INT":     syscall.SIGINT,
	"SIGUSR1": syscall.SIGUSR1,
	"USR1":    syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2,
	"USR2":    syscall.SIGUSR2,
}

var killCmd = &cobra.Command{
	Use:   "kill <container-id> [signal]",
	Short: "Send a signal to the container's init process (default: SIGTERM)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		sig := syscall.SIGTERM
		if len(args) == 2 {
			s, err := parseSignal(args[1])
			if err != nil {
				return err
			}
			sig = s
		}

		c, err := state.Load(runtimeRoot, id)
		if err != nil {
			return fmt.Errorf("load container state: %w", err)
		}

		proc, err := os.FindProcess(c.InitPID)
		if err != nil {
			return fmt.Errorf("find process %d: %w", c.InitPID, err)
		}
		if err := proc.Signal(sig); err != nil {
			return fmt.Errorf("signal process %d: %w", c.InitPID, err)
		}

		log.WithField("id", id).WithField("signal", sig).Info("sent signal")
		return nil
	},
}

func parseSignal(s string) (syscall.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return syscall.Signal(n), nil
	}
	if sig, ok := namedSignals[strings.ToUpper(s)]; ok {
		return sig, nil
	}
	return 0, fmt.Errorf("unrecognized signal %q", s)
}
