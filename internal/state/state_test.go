package state

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDirNameTruncatesToTenRunes(t *testing.T) {
	cases := map[string]string{
		"abc":                      "abc",
		"0123456789":               "0123456789",
		"0123456789extra":          "0123456789",
		"":                         "",
		"日本語コンテナabcdefgh": "日本語コンテナabc",
	}
	for in, want := range cases {
		if got := DirName(in); got != want {
			t.Fatalf("DirName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	c := &Container{
		OCIVersion: "1.0.2",
		ID:         "c1234567890",
		Bundle:     "/tmp/bundle",
		InitPID:    4242,
		Status:     StatusRunning,
		CreatedAt:  time.Now().UTC().Round(time.Second),
	}

	if err := Save(root, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(root, c.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.ID != c.ID || loaded.InitPID != c.InitPID || loaded.Status != c.Status ||
		loaded.Bundle != c.Bundle || !loaded.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("loaded state %+v does not match saved state %+v", loaded, c)
	}
}

func TestExecSockPath(t *testing.T) {
	root := "/run/hako"
	got := ExecSockPath(root, "abcdefghijklmnop")
	want := filepath.Join(root, "abcdefghij", "exec.sock")
	if got != want {
		t.Fatalf("ExecSockPath = %q, want %q", got, want)
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	c := &Container{ID: "removeme", Status: StatusStopped}
	if err := Save(root, c); err != nil {
		t.Fatal(err)
	}
	if err := Remove(root, c.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := Load(root, c.ID); err == nil {
		t.Fatalf("expected error loading removed state")
	}
}
