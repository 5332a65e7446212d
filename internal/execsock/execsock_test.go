//go:build linux

package execsock

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestListenDialWaitRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Name)

	sock, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sock.Close()

	waitErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		waitErr <- sock.Wait(ctx)
	}()

	// Give Wait a moment to reach accept() before dialing; not required
	// for correctness since the socket is already listening, but avoids
	// a flaky fast machine racing the goroutine scheduler.
	time.Sleep(10 * time.Millisecond)

	if err := Dial(path); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := <-waitErr; err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWaitTimesOutWithoutDial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Name)

	sock, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sock.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := sock.Wait(ctx); err == nil {
		t.Fatalf("expected Wait to time out with no dialer")
	}
}

func TestDialWithoutListenerFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Name)

	if err := Dial(path); err == nil {
		t.Fatalf("expected error dialing nonexistent socket")
	}
}
