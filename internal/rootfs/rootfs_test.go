//go:build linux

package rootfs

import (
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

func TestJoinOptions(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"ro"}, "ro"},
		{[]string{"ro", "nosuid"}, "ro,nosuid"},
	}
	for _, c := range cases {
		if got := joinOptions(c.in); got != c.want {
			t.Fatalf("joinOptions(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestApplyExtraMountsRejectsMissingDestination(t *testing.T) {
	err := applyExtraMounts([]specs.Mount{{Source: "/tmp"}})
	if err == nil {
		t.Fatalf("expected error for mount entry without destination")
	}
}

func TestApplyExtraMountsSkipsSourcelessEntries(t *testing.T) {
	// An entry with no source (e.g. a tmpfs-only declaration the spec
	// subset doesn't otherwise act on) must not attempt a bind mount.
	err := applyExtraMounts([]specs.Mount{{Destination: "/tmp"}})
	if err != nil {
		t.Fatalf("unexpected error for sourceless mount entry: %v", err)
	}
}
