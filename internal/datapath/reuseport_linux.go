//go:build linux
// +build linux

package datapath

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlReusePort sets SO_REUSEPORT so several connection workers can bind
// the same address:port and let the kernel load-balance accepts across
// them, matching the "otherwise all workers share INADDR_ANY on the same
// port (relying on reuse semantics of the datapath)" contract.
func controlReusePort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
