// Package ipc provides the message-framed channel used between the three
// processes of the bring-up pipeline: a pair of SOCK_SEQPACKET sockets
// created with unix.Socketpair, one endpoint per process. SEQPACKET
// preserves message boundaries and ordering without the partial-read
// bookkeeping a stream socket would need.
package ipc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MaxMessage is the largest payload a single Send/Recv call accepts, per
// the handshake protocol's own bound.
const MaxMessage = 1024

// Ready is the literal payload P2 sends on channel B once mount and
// namespace setup has completed and the exec socket is listening.
const Ready = "ready"

// Channel wraps one endpoint of a SOCK_SEQPACKET socketpair. The zero value
// is not usable; construct with NewPair or take ownership of an fd with
// New.
type Channel struct {
	fd int
}

// New wraps an already-open socket fd as a Channel.
func New(fd int) *Channel {
	return &Channel{fd: fd}
}

// NewPair creates a SOCK_SEQPACKET|SOCK_CLOEXEC socketpair and returns both
// endpoints. Callers close the endpoint(s) not retained by their process
// immediately after any fork, per the fd-hygiene invariant.
func NewPair() (a, b *Channel, err error) {
	fds, err := unix.Socketpair(unix.AF_LOCAL, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	return New(fds[0]), New(fds[1]), nil
}

// Fd returns the raw file descriptor, for handing to exec.Cmd.ExtraFiles or
// for closing explicitly across a fork boundary.
func (c *Channel) Fd() int {
	return c.fd
}

// Send transmits msg as exactly one datagram.
func (c *Channel) Send(msg []byte) error {
	if len(msg) > MaxMessage {
		return fmt.Errorf("ipc: message of %d bytes exceeds max %d", len(msg), MaxMessage)
	}
	if err := unix.Send(c.fd, msg, 0); err != nil {
		return fmt.Errorf("ipc: send: %w", err)
	}
	return nil
}

// SendString is a convenience wrapper for textual messages such as Ready.
func (c *Channel) SendString(msg string) error {
	return c.Send([]byte(msg))
}

// Recv blocks for exactly one datagram and returns its payload decoded as a
// string. An empty read (peer closed without sending) is reported as an
// error rather than an empty string, since a closed peer and an
// intentional empty message must not be confused by callers.
func (c *Channel) Recv() (string, error) {
	buf := make([]byte, MaxMessage)
	n, _, err := unix.Recvfrom(c.fd, buf, 0)
	if err != nil {
		return "", fmt.Errorf("ipc: recv: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("ipc: recv: peer closed without payload")
	}
	return string(buf[:n]), nil
}

// Close releases the endpoint.
func (c *Channel) Close() error {
	return unix.Close(c.fd)
}
