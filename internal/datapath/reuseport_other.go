//go:build !linux
// +build !linux

package datapath

import "syscall"

// controlReusePort is a no-op outside Linux: SO_REUSEPORT load-balanced
// accept is a Linux-specific kernel feature, so the shared-INADDR_ANY
// configuration degrades to a single connection worker able to bind the
// port on other platforms.
func controlReusePort(_, _ string, _ syscall.RawConn) error {
	return nil
}
