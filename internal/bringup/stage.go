//go:build linux

package bringup

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/div9851/hako/internal/console"
	"github.com/div9851/hako/internal/execsock"
	"github.com/div9851/hako/internal/ipc"
	"github.com/div9851/hako/internal/rootfs"
	"github.com/div9851/hako/internal/specfile"
	"github.com/div9851/hako/internal/state"
)

// RunStage dispatches to the intermediate or init stage based on the
// re-exec argument main.go recognized. It never returns: each stage exits
// the process directly rather than unwinding back through main, since by
// the time a stage is done it has either exec'd a new image or failed.
func RunStage(stage string) {
	switch stage {
	case stageIntermediate:
		runIntermediateStage()
	case stageInit:
		runInitStage()
	default:
		fmt.Fprintf(os.Stderr, "hako: unknown stage %q\n", stage)
		os.Exit(1)
	}
}

// runIntermediateStage is P1. Its only job is to unshare the PID namespace
// before forking the process that becomes PID 1 inside it (P2), then
// report that child's host-visible PID back to P0 on channel A.
func runIntermediateStage() {
	chanAFd, err := getEnvInt(envChanAFd)
	if err != nil {
		fatal(err)
	}
	chanBFd, err := getEnvInt(envChanBFd)
	if err != nil {
		fatal(err)
	}
	pidFlags, err := getEnvUintptr(envPidFlags)
	if err != nil {
		fatal(err)
	}

	chanA := ipc.New(chanAFd)
	chanBFile := os.NewFile(uintptr(chanBFd), "hako-chan-b")

	if pidFlags != 0 {
		if err := unix.Unshare(int(pidFlags)); err != nil {
			chanA.Close()
			fatal(fmt.Errorf("unshare pid namespace: %w", err))
		}
	}

	self, err := os.Executable()
	if err != nil {
		fatal(err)
	}

	cmd := exec.Command(self, StageArg, stageInit)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{chanBFile}
	cmd.Env = append(os.Environ(),
		envVar(envChanBFd, "3"),
	)

	if err := cmd.Start(); err != nil {
		chanA.Close()
		fatal(fmt.Errorf("start init process: %w", err))
	}
	chanBFile.Close()

	hostPID := cmd.Process.Pid
	if err := chanA.SendString(strconv.Itoa(hostPID)); err != nil {
		fatal(fmt.Errorf("report init pid: %w", err))
	}
	chanA.Close()

	// P1's job ends here; P2 is reparented to the host's nearest
	// subreaper and lives on to run the container.
	os.Exit(0)
}

// runInitStage is P2: PID 1 of the new PID namespace. It finishes
// namespace entry, runs the mount choreography, signals readiness, blocks
// on the exec rendezvous socket, and finally execs the user's process.
func runInitStage() {
	chanBFd, err := getEnvInt(envChanBFd)
	if err != nil {
		fatal(err)
	}
	otherFlags, err := getEnvUintptr(envOtherFlags)
	if err != nil {
		fatal(err)
	}

	containerID := os.Getenv(envContainerID)
	bundle := os.Getenv(envBundle)
	runtimeRoot := os.Getenv(envRuntimeRoot)
	consoleSocket := os.Getenv(envConsoleSocket)

	chanB := ipc.New(chanBFd)

	if err := unix.Setsid(); err != nil {
		fatal(fmt.Errorf("setsid: %w", err))
	}

	spec, err := specfile.Load(bundle)
	if err != nil {
		fatal(fmt.Errorf("load spec: %w", err))
	}

	var slave *os.File
	var master io.Closer
	if spec.Process.Terminal && consoleSocket != "" {
		m, s, err := console.Handoff(consoleSocket)
		if err != nil {
			fatal(fmt.Errorf("pty handoff: %w", err))
		}
		master = m
		slave = s
		if err := console.MakeControllingTerminal(slave); err != nil {
			fatal(fmt.Errorf("make controlling terminal: %w", err))
		}
	}

	if otherFlags != 0 {
		if err := unix.Unshare(int(otherFlags)); err != nil {
			fatal(fmt.Errorf("unshare remaining namespaces: %w", err))
		}
	}

	if spec.Hostname != "" {
		if err := unix.Sethostname([]byte(spec.Hostname)); err != nil {
			fatal(fmt.Errorf("sethostname: %w", err))
		}
	}
	if spec.Domainname != "" {
		if err := unix.Setdomainname([]byte(spec.Domainname)); err != nil {
			fatal(fmt.Errorf("setdomainname: %w", err))
		}
	}

	execSockPath := filepath.Join(state.Dir(runtimeRoot, containerID), execsock.Name)
	var sock *execsock.Socket
	err = rootfs.Choreograph(rootfs.Config{
		RootPath:    spec.Root.Path,
		ExecSockDir: state.Dir(runtimeRoot, containerID),
		ExtraMounts: spec.Mounts,
		BindExecSocket: func(dir string) error {
			s, err := execsock.Listen(execSockPath)
			if err != nil {
				return err
			}
			sock = s
			return nil
		},
	})
	if err != nil {
		fatal(fmt.Errorf("mount choreography: %w", err))
	}

	if err := chanB.SendString(ipc.Ready); err != nil {
		fatal(fmt.Errorf("send ready: %w", err))
	}
	chanB.Close()

	if err := sock.Wait(context.Background()); err != nil {
		os.Exit(1)
	}
	sock.Close()

	if spec.Process.Cwd != "" {
		if err := unix.Chdir(spec.Process.Cwd); err != nil {
			fatal(fmt.Errorf("chdir %s: %w", spec.Process.Cwd, err))
		}
	}

	env := spec.Process.Env
	if len(env) == 0 {
		env = os.Environ()
	}

	args := spec.Process.Args
	argv0, err := exec.LookPath(args[0])
	if err != nil {
		fatal(fmt.Errorf("lookup %s: %w", args[0], err))
	}

	// master is otherwise unreferenced past the handoff; keep it reachable
	// so its finalizer cannot close the fd out from under the child's tty
	// before the exec below replaces this process image.
	runtime.KeepAlive(master)

	if err := unix.Exec(argv0, args, env); err != nil {
		fatal(fmt.Errorf("exec %s: %w", argv0, err))
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "hako: %v\n", err)
	os.Exit(1)
}
