//go:build linux

// Package bringup drives the three-process fork chain: the binary is
// re-exec'd twice, first by the caller (P0) into an intermediate process
// (P1) whose sole job is to unshare the PID namespace before forking init
// (P2), then by P1 into init itself, which finishes namespace entry, runs the mount
// choreography, and blocks on the exec rendezvous socket until `start`
// connects.
//
// Three stages are necessary because unshare(CLONE_NEWPID) only affects
// the unsharing process's future children, not the process itself: P1
// exists solely to host that unshare so the process it forks next (P2)
// lands inside the new PID namespace as PID 1. Collapsing P0 and P1 would
// put the whole runtime inside the new PID namespace; collapsing P1 and P2
// would leave init outside it.
package bringup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/div9851/hako/internal/ipc"
	"github.com/div9851/hako/internal/nsplan"
	"github.com/div9851/hako/internal/state"
)

// Stage argument values recognized by RunStage. main.go intercepts these
// before cobra ever parses a flag, since a re-exec'd stage invocation must
// never be mistaken for a normal subcommand.
const (
	StageArg          = "__hako_stage"
	stageIntermediate = "intermediate"
	stageInit         = "init"
)

// CreateOptions is the P0-side input to Create: everything the caller
// knows about the container before any process is forked. The loaded spec
// itself is not threaded through IPC (the handshake channels are capped at
// 1024 bytes per message) — the init stage instead reloads
// config.json from Bundle directly, which is the cheap, race-free
// equivalent of carrying this context across a boundary that, in the Go
// re-exec model, is a process exec rather than a literal fork.
type CreateOptions struct {
	ContainerID       string
	Bundle            string
	Spec              *specs.Spec
	ConsoleSocketPath string
	PidFilePath       string
	RuntimeRoot       string
}

// Result is what Create reports back to the caller once the handshake
// completes.
type Result struct {
	InitPID int
}

// Create runs the P0 side of the bring-up pipeline: it spawns the
// intermediate process, waits for it to report init's PID, waits for
// init's readiness signal, optionally writes the pid-file, and reaps the
// intermediate process before returning.
func Create(ctx context.Context, opts CreateOptions) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	pidFlags, otherFlags := nsplan.Plan(namespacesOf(opts.Spec))

	chanAParent, chanAChild, err := ipc.NewPair()
	if err != nil {
		return nil, fmt.Errorf("create channel A: %w", err)
	}
	defer chanAParent.Close()

	chanBParent, chanBChild, err := ipc.NewPair()
	if err != nil {
		chanAChild.Close()
		return nil, fmt.Errorf("create channel B: %w", err)
	}
	defer chanBParent.Close()

	self, err := os.Executable()
	if err != nil {
		chanAChild.Close()
		chanBChild.Close()
		return nil, fmt.Errorf("resolve own executable: %w", err)
	}

	chanAChildFile := os.NewFile(uintptr(chanAChild.Fd()), "hako-chan-a-child")
	chanBChildFile := os.NewFile(uintptr(chanBChild.Fd()), "hako-chan-b-child")

	cmd := exec.Command(self, StageArg, stageIntermediate)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{chanAChildFile, chanBChildFile}
	cmd.Env = append(os.Environ(),
		envVar(envContainerID, opts.ContainerID),
		envVar(envBundle, opts.Bundle),
		envVar(envRuntimeRoot, opts.RuntimeRoot),
		envVar(envConsoleSocket, opts.ConsoleSocketPath),
		envVar(envPidFlags, strconv.FormatUint(uint64(pidFlags), 10)),
		envVar(envOtherFlags, strconv.FormatUint(uint64(otherFlags), 10)),
		envVar(envChanAFd, "3"),
		envVar(envChanBFd, "4"),
	)

	if err := cmd.Start(); err != nil {
		chanAChildFile.Close()
		chanBChildFile.Close()
		return nil, fmt.Errorf("start intermediate process: %w", err)
	}
	// P0's copies of the child-side fds are no longer needed once the
	// intermediate process has its own duplicates from exec.
	chanAChildFile.Close()
	chanBChildFile.Close()

	pidStr, err := chanAParent.Recv()
	if err != nil {
		cmd.Wait()
		return nil, fmt.Errorf("waiting for init pid report: %w", err)
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		cmd.Wait()
		return nil, fmt.Errorf("invalid init pid %q: %w", pidStr, err)
	}

	readyMsg, err := chanBParent.Recv()
	if err != nil {
		cmd.Wait()
		return nil, fmt.Errorf("waiting for init readiness: %w", err)
	}
	if readyMsg != ipc.Ready {
		cmd.Wait()
		return nil, fmt.Errorf("unexpected readiness message %q", readyMsg)
	}

	if opts.PidFilePath != "" {
		if err := os.WriteFile(opts.PidFilePath, []byte(strconv.Itoa(pid)), 0o644); err != nil {
			return nil, fmt.Errorf("write pid file %s: %w", opts.PidFilePath, err)
		}
	}

	// The intermediate process has already sent its report and exits
	// immediately afterwards; reap it so it does not linger as a zombie.
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("intermediate process exited with error: %w", err)
	}

	c := &state.Container{
		OCIVersion:    opts.Spec.Version,
		ID:            opts.ContainerID,
		Bundle:        opts.Bundle,
		InitPID:       pid,
		Status:        state.StatusCreated,
		ConsoleSocket: opts.ConsoleSocketPath,
		CreatedAt:     time.Now(),
	}
	if err := state.Save(opts.RuntimeRoot, c); err != nil {
		return nil, fmt.Errorf("save container state: %w", err)
	}

	return &Result{InitPID: pid}, nil
}

func namespacesOf(spec *specs.Spec) []specs.LinuxNamespace {
	if spec == nil || spec.Linux == nil {
		return nil
	}
	return spec.Linux.Namespaces
}

func envVar(name, value string) string {
	return name + "=" + value
}
