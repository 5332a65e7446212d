// Package state persists and loads the on-disk container record: the
// JSON state file living alongside the exec rendezvous socket in each
// container's state directory under a configurable runtime root.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status mirrors the OCI runtime's container lifecycle states.
type Status string

const (
	StatusCreating Status = "creating"
	StatusCreated  Status = "created"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
)

// fileName is the name of the state document within a container's state
// directory.
const fileName = "state.json"

// Container is the persisted record for one container.
type Container struct {
	OCIVersion    string    `json:"ociVersion"`
	ID            string    `json:"id"`
	Bundle        string    `json:"bundle"`
	InitPID       int       `json:"pid"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	ConsoleSocket string    `json:"consoleSocket,omitempty"`
}

// DirName returns the state-directory name for a container ID: its first
// ten Unicode scalars. Truncating to a fixed, short prefix keeps socket
// paths comfortably under the kernel's sun_path length limit; callers are
// responsible for choosing container IDs whose first ten runes don't
// collide.
func DirName(containerID string) string {
	runes := []rune(containerID)
	if len(runes) > 10 {
		runes = runes[:10]
	}
	return string(runes)
}

// Dir returns the full state directory path under runtimeRoot.
func Dir(runtimeRoot, containerID string) string {
	return filepath.Join(runtimeRoot, DirName(containerID))
}

// ExecSockPath returns the path to the exec rendezvous socket for a
// container.
func ExecSockPath(runtimeRoot, containerID string) string {
	return filepath.Join(Dir(runtimeRoot, containerID), "exec.sock")
}

// Save writes c to its state directory, creating the directory if
// necessary, and fsyncs the file before returning.
func Save(runtimeRoot string, c *Container) error {
	dir := Dir(runtimeRoot, c.ID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return f.Sync()
}

// Load reads the state record for containerID from runtimeRoot.
func Load(runtimeRoot, containerID string) (*Container, error) {
	path := filepath.Join(Dir(runtimeRoot, containerID), fileName)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var c Container
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &c, nil
}

// Remove deletes a container's state directory entirely.
func Remove(runtimeRoot, containerID string) error {
	return os.RemoveAll(Dir(runtimeRoot, containerID))
}
