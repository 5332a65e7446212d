package specfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

func writeConfig(t *testing.T, dir string, spec specs.Spec) {
	t.Helper()
	b, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigName), b, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadValid(t *testing.T) {
	bundle := t.TempDir()
	rootfs := filepath.Join(bundle, "rootfs")
	if err := os.MkdirAll(rootfs, 0755); err != nil {
		t.Fatal(err)
	}

	writeConfig(t, bundle, specs.Spec{
		Version: "1.0.2",
		Root:    &specs.Root{Path: rootfs},
		Process: &specs.Process{Args: []string{"/bin/true"}, Cwd: "/"},
		Linux: &specs.Linux{
			Namespaces: []specs.LinuxNamespace{
				{Type: specs.PIDNamespace},
				{Type: specs.MountNamespace},
			},
		},
	})

	spec, err := Load(bundle)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if spec.Root.Path != rootfs {
		t.Fatalf("unexpected root path %q", spec.Root.Path)
	}
	if len(spec.Process.Args) != 1 || spec.Process.Args[0] != "/bin/true" {
		t.Fatalf("unexpected args %v", spec.Process.Args)
	}
}

func TestLoadMissingArgs(t *testing.T) {
	bundle := t.TempDir()
	rootfs := filepath.Join(bundle, "rootfs")
	if err := os.MkdirAll(rootfs, 0755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, bundle, specs.Spec{
		Root: &specs.Root{Path: rootfs},
	})

	if _, err := Load(bundle); err == nil {
		t.Fatalf("expected error for empty process.args")
	}
}

func TestLoadMissingRootDir(t *testing.T) {
	bundle := t.TempDir()
	writeConfig(t, bundle, specs.Spec{
		Root:    &specs.Root{Path: filepath.Join(bundle, "does-not-exist")},
		Process: &specs.Process{Args: []string{"/bin/true"}},
	})

	if _, err := Load(bundle); err == nil {
		t.Fatalf("expected error for missing root.path")
	}
}

func TestLoadUnreadable(t *testing.T) {
	bundle := t.TempDir()
	if _, err := Load(bundle); err == nil {
		t.Fatalf("expected error for missing config.json")
	}
}

func TestUnknownNamespaceIgnored(t *testing.T) {
	if KnownNamespace("foo") {
		t.Fatalf("expected unknown namespace type to be reported as unknown")
	}
	if !KnownNamespace(specs.PIDNamespace) {
		t.Fatalf("expected pid namespace to be known")
	}
}
