package nsplan

import (
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"
)

func TestPlanSplitsPidFromOthers(t *testing.T) {
	pid, other := Plan([]specs.LinuxNamespace{
		{Type: specs.PIDNamespace},
		{Type: specs.MountNamespace},
		{Type: specs.NetworkNamespace},
	})

	if pid != unix.CLONE_NEWPID {
		t.Fatalf("pid flags = %#x, want only CLONE_NEWPID", pid)
	}
	want := uintptr(unix.CLONE_NEWNS | unix.CLONE_NEWNET)
	if other != want {
		t.Fatalf("other flags = %#x, want %#x", other, want)
	}
}

func TestPlanEmptyIsNoop(t *testing.T) {
	pid, other := Plan(nil)
	if pid != 0 || other != 0 {
		t.Fatalf("expected zero flags for empty namespace list, got pid=%#x other=%#x", pid, other)
	}
}

func TestPlanUnknownTypeIgnored(t *testing.T) {
	pid, other := Plan([]specs.LinuxNamespace{
		{Type: "foo"},
		{Type: specs.UTSNamespace},
	})
	if pid != 0 {
		t.Fatalf("unknown type should not set pid flags, got %#x", pid)
	}
	if other != unix.CLONE_NEWUTS {
		t.Fatalf("other flags = %#x, want CLONE_NEWUTS", other)
	}
}

func TestPlanNeverMixesPidIntoOther(t *testing.T) {
	_, other := Plan([]specs.LinuxNamespace{{Type: specs.PIDNamespace}})
	if other&unix.CLONE_NEWPID != 0 {
		t.Fatalf("CLONE_NEWPID leaked into other flags: %#x", other)
	}
}
