// Package nsplan translates a declared OCI namespace list into the two
// kernel clone-flag sets the bring-up driver needs: the flags entered by
// the intermediate process before its final fork (the new-PID flag when a
// PID namespace is declared, and never any other flag, so the resulting
// child lands as PID 1 of a fresh PID namespace), and the flags entered by init itself after the
// fork (everything else).
package nsplan

import (
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"
)

// flagByType maps a declared namespace type to its clone(2)/unshare(2)
// flag. Unknown types map to 0 and are ignored rather than rejected.
var flagByType = map[specs.LinuxNamespaceType]uintptr{
	specs.PIDNamespace:     unix.CLONE_NEWPID,
	specs.NetworkNamespace: unix.CLONE_NEWNET,
	specs.MountNamespace:   unix.CLONE_NEWNS,
	specs.IPCNamespace:     unix.CLONE_NEWIPC,
	specs.UTSNamespace:     unix.CLONE_NEWUTS,
	specs.UserNamespace:    unix.CLONE_NEWUSER,
	specs.CgroupNamespace:  unix.CLONE_NEWCGROUP,
}

// Plan splits nss into the PID-namespace flag (entered pre-final-fork by
// the intermediate process) and the remaining flags (entered post-fork by
// init). The spec's per-namespace "path" field (joining an existing
// namespace) is accepted syntactically upstream in specfile but is not
// honored here — this core always creates fresh namespaces.
func Plan(nss []specs.LinuxNamespace) (pidFlags, otherFlags uintptr) {
	for _, ns := range nss {
		flag, ok := flagByType[ns.Type]
		if !ok {
			continue
		}
		if ns.Type == specs.PIDNamespace {
			pidFlags |= flag
		} else {
			otherFlags |= flag
		}
	}
	return pidFlags, otherFlags
}
