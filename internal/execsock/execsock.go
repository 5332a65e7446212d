//go:build linux

// Package execsock implements the exec rendezvous: a SOCK_SEQPACKET
// listening socket, bound inside init after namespace entry but at a path
// still reachable from the host, whose single accept() gates the
// transition from "created" to "running". A later `start` invocation
// connects as a client; the successful connect unblocks the accept and
// lets init proceed to execvp.
package execsock

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Name is the fixed filename of the rendezvous socket within a
// container's state directory.
const Name = "exec.sock"

// Socket is a bound, listening exec rendezvous socket.
type Socket struct {
	fd   int
	path string
}

// Listen binds a SOCK_SEQPACKET socket at path with a backlog of 1.
func Listen(path string) (*Socket, error) {
	_ = os.Remove(path) // best effort: clear a stale socket from a prior failed create

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", path, err)
	}

	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}

	return &Socket{fd: fd, path: path}, nil
}

// Fd returns the raw listening fd.
func (s *Socket) Fd() int {
	return s.fd
}

// Wait blocks in accept() until a client connects (or ctx is done). The
// accepted connection's payload is never read — the socket is used purely
// as a semaphore.
func (s *Socket) Wait(ctx context.Context) error {
	type result struct {
		fd  int
		err error
	}
	done := make(chan result, 1)

	go func() {
		connFd, _, err := unix.Accept(s.fd)
		done <- result{fd: connFd, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("accept: %w", r.err)
		}
		unix.Close(r.fd)
		return nil
	}
}

// Close removes the socket file and releases the fd.
func (s *Socket) Close() error {
	err := unix.Close(s.fd)
	_ = os.Remove(s.path)
	return err
}

// Dial connects to the exec rendezvous socket at path, as the `start`
// command does, and immediately disconnects. A successful return means the
// corresponding init's accept() has unblocked.
func Dial(path string) error {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	defer unix.Close(fd)

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(fd, addr); err != nil {
		return fmt.Errorf("connect %s: %w", path, err)
	}
	return nil
}
