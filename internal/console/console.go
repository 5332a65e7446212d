//go:build linux

// Package console implements the PTY broker: allocating a pseudo-terminal,
// handing its master side to an external console-socket listener over
// SCM_RIGHTS, and making the slave side the controlling terminal of the
// current session. Activated only when the spec requests a terminal and a
// console socket path was supplied.
package console

import (
	"fmt"
	"net"
	"os"

	"github.com/containerd/console"
	"golang.org/x/sys/unix"
)

// payload is the datagram sent alongside the SCM_RIGHTS control message.
// Its content is not interpreted by any known receiver; it exists so the
// message itself is non-empty.
const payload = "/dev/ptmx"

// Handoff allocates a PTY, sends its master fd to the listener at
// socketPath via SCM_RIGHTS, and returns the slave so the caller can wire
// it up as the child's stdio. The caller retains its own copy of the
// master until after execvp; this function does not close the master,
// only the connection used to send it.
func Handoff(socketPath string) (master console.Console, slave *os.File, err error) {
	master, slavePath, err := console.NewPty()
	if err != nil {
		return nil, nil, fmt.Errorf("openpty: %w", err)
	}

	slave, err = os.OpenFile(slavePath, os.O_RDWR, 0)
	if err != nil {
		master.Close()
		return nil, nil, fmt.Errorf("open pty slave %s: %w", slavePath, err)
	}

	if err := send(socketPath, master); err != nil {
		master.Close()
		slave.Close()
		return nil, nil, err
	}

	return master, slave, nil
}

// send dials socketPath and transmits master's fd as ancillary data.
func send(socketPath string, master console.Console) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect console socket %s: %w", socketPath, err)
	}
	defer conn.Close()

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return fmt.Errorf("console socket %s is not a unix socket", socketPath)
	}

	sockFile, err := unixConn.File()
	if err != nil {
		return fmt.Errorf("get raw fd for console socket: %w", err)
	}
	defer sockFile.Close()

	oob := unix.UnixRights(int(master.Fd()))
	if err := unix.Sendmsg(int(sockFile.Fd()), []byte(payload), oob, nil, 0); err != nil {
		return fmt.Errorf("send console fd: %w", err)
	}
	return nil
}

// MakeControllingTerminal makes slave the controlling terminal of the
// calling process's session (setsid must already have run) and replaces
// fds 0, 1, 2 with it.
func MakeControllingTerminal(slave *os.File) error {
	fd := int(slave.Fd())

	if err := unix.IoctlSetInt(fd, unix.TIOCSCTTY, 0); err != nil {
		return fmt.Errorf("TIOCSCTTY: %w", err)
	}

	for _, std := range []int{unix.Stdin, unix.Stdout, unix.Stderr} {
		if err := unix.Dup2(fd, std); err != nil {
			return fmt.Errorf("dup2 %d -> %d: %w", fd, std, err)
		}
	}

	return nil
}
