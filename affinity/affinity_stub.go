//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms. AtuReactor targets Linux
// (epoll/timerfd/recvmmsg are Linux-only syscalls); this stub only exists
// so the module still links on other GOOS during cross-compilation checks.

package affinity

import "errors"

// setAffinityPlatform is a stub for platforms where CPU affinity is not supported.
func setAffinityPlatform(cpuID int) error {
	return errors.New("affinity: not supported on this platform")
}

// resetAffinityPlatform is a stub for platforms where CPU affinity is not supported.
func resetAffinityPlatform() error {
	return errors.New("affinity: not supported on this platform")
}
