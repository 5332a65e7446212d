// Package specfile loads and validates the subset of the OCI bundle
// configuration that the core bring-up pipeline consumes.
package specfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// ConfigName is the bundle-relative name of the OCI config document.
const ConfigName = "config.json"

// knownNamespaces is the closed set of namespace type strings the core
// understands. Anything else is accepted but contributes no flags.
var knownNamespaces = map[specs.LinuxNamespaceType]bool{
	specs.PIDNamespace:     true,
	specs.NetworkNamespace: true,
	specs.MountNamespace:   true,
	specs.IPCNamespace:     true,
	specs.UTSNamespace:     true,
	specs.UserNamespace:    true,
	specs.CgroupNamespace:  true,
}

// Load reads and parses ${bundle}/config.json and validates the invariants
// the bring-up pipeline depends on. Unknown JSON fields are ignored by
// encoding/json unmarshaling already; unknown namespace types are left in
// place rather than rejected, per the closed-set permissiveness the core
// requires.
func Load(bundlePath string) (*specs.Spec, error) {
	cfgPath := filepath.Join(bundlePath, ConfigName)

	f, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfgPath, err)
	}
	defer f.Close()

	var spec specs.Spec
	if err := json.NewDecoder(f).Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", cfgPath, err)
	}

	if err := Validate(&spec); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	return &spec, nil
}

// Validate enforces the invariants the bring-up driver relies on before any
// process is forked.
func Validate(spec *specs.Spec) error {
	if spec.Process == nil || len(spec.Process.Args) == 0 {
		return fmt.Errorf("process.args must be non-empty")
	}

	if spec.Root == nil || spec.Root.Path == "" {
		return fmt.Errorf("root.path must be set")
	}

	info, err := os.Stat(spec.Root.Path)
	if err != nil {
		return fmt.Errorf("stat root.path %s: %w", spec.Root.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root.path %s is not a directory", spec.Root.Path)
	}

	return nil
}

// KnownNamespace reports whether t is one of the namespace types the
// core understands. Unknown types are not an error. The namespace planner
// (internal/nsplan) keeps its own type-to-flag table and does not call this.
func KnownNamespace(t specs.LinuxNamespaceType) bool {
	return knownNamespaces[t]
}
