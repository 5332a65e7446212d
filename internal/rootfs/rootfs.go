//go:build linux

// Package rootfs performs the mount choreography that runs inside init
// after namespace entry and before the user process execs: detach
// propagation, bind the rootfs onto itself, create and bind the exec
// rendezvous socket, pivot_root, apply any declared extra mounts, and
// mount a fresh /proc. The ordering here is load-bearing; each step's
// rationale is noted where it runs in Choreograph below.
package rootfs

import (
	"fmt"
	"os"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/moby/sys/mountinfo"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"
)

// Config carries everything the choreography needs from the loaded spec
// and the per-container runtime paths.
type Config struct {
	// RootPath is the container's root filesystem on the host.
	RootPath string
	// ExecSockDir is the directory, reachable from the host's view of the
	// filesystem, that will hold exec.sock. It is created before
	// pivot_root so the path remains valid afterwards.
	ExecSockDir string
	// ExtraMounts are spec.mounts entries, applied after pivot_root and
	// before the /proc mount.
	ExtraMounts []specs.Mount
	// DetachOldRoot, when true, performs MNT_DETACH on the stacked old
	// root after pivot_root. Left false by default, so the host root stays
	// mounted on top of the new root; whether that is acceptable depends
	// on the caller's threat model.
	DetachOldRoot bool
	// BindExecSocket is invoked once ExecSockDir exists and before
	// pivot_root, so the exec rendezvous socket (internal/execsock) can be
	// bound at a path still visible from the pre-pivot filesystem view.
	BindExecSocket func(dir string) error
}

// Choreograph runs the full ordered mount sequence described above.
func Choreograph(cfg Config) error {
	// Step 1: detach propagation so nothing we do here escapes to the host.
	if err := unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("make / private: %w", err)
	}

	// Step 2: pivot_root requires the new root to be on a different mount
	// than its parent; bind it onto itself to guarantee that.
	if err := unix.Mount(cfg.RootPath, cfg.RootPath, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("bind rootfs %s onto itself: %w", cfg.RootPath, err)
	}

	mounted, err := mountinfo.Mounted(cfg.RootPath)
	if err != nil {
		return fmt.Errorf("check rootfs mount: %w", err)
	}
	if !mounted {
		return fmt.Errorf("rootfs %s did not become a mount point after bind", cfg.RootPath)
	}

	// Step 3: create the exec-socket directory while still reachable from
	// the host's path namespace.
	if err := os.MkdirAll(cfg.ExecSockDir, 0o700); err != nil {
		return fmt.Errorf("create exec socket dir %s: %w", cfg.ExecSockDir, err)
	}

	// Step 4: bind the exec rendezvous socket at that path.
	if cfg.BindExecSocket != nil {
		if err := cfg.BindExecSocket(cfg.ExecSockDir); err != nil {
			return fmt.Errorf("bind exec socket: %w", err)
		}
	}

	// Step 5: swap roots. new-root == put-old stacks the previous root on
	// top of the new one.
	if err := unix.PivotRoot(cfg.RootPath, cfg.RootPath); err != nil {
		return fmt.Errorf("pivot_root %s: %w", cfg.RootPath, err)
	}

	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir / after pivot_root: %w", err)
	}

	if cfg.DetachOldRoot {
		if err := unix.Unmount("/", unix.MNT_DETACH); err != nil {
			return fmt.Errorf("detach old root: %w", err)
		}
	}

	if err := applyExtraMounts(cfg.ExtraMounts); err != nil {
		return err
	}

	// Step 6: fresh procfs reflecting the new PID namespace.
	if err := unix.Mount("proc", "/proc", "proc", 0, ""); err != nil {
		return fmt.Errorf("mount /proc: %w", err)
	}

	if mounted, err := mountinfo.Mounted("/proc"); err != nil {
		return fmt.Errorf("check /proc mount: %w", err)
	} else if !mounted {
		return fmt.Errorf("/proc did not become a mount point")
	}

	return nil
}

// applyExtraMounts binds spec.mounts entries onto the new root, resolving
// each destination with securejoin so a malicious or buggy rootfs symlink
// cannot redirect the mount outside the intended target.
func applyExtraMounts(mounts []specs.Mount) error {
	for _, m := range mounts {
		if m.Destination == "" {
			return fmt.Errorf("mount entry missing destination")
		}

		target, err := securejoin.SecureJoin("/", m.Destination)
		if err != nil {
			return fmt.Errorf("resolve mount destination %s: %w", m.Destination, err)
		}

		if m.Source == "" {
			continue
		}

		if err := unix.Mount(m.Source, target, "", unix.MS_BIND, joinOptions(m.Options)); err != nil {
			return fmt.Errorf("mount %s -> %s: %w", m.Source, target, err)
		}
	}
	return nil
}

func joinOptions(opts []string) string {
	out := ""
	for i, o := range opts {
		if i > 0 {
			out += ","
		}
		out += o
	}
	return out
}
