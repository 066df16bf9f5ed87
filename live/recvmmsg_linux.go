//go:build linux

// File: live/recvmmsg_linux.go
// Author: momentics <momentics@gmail.com>
//
// Manual recvmmsg(2) binding. golang.org/x/sys/unix does not expose a
// stable high-level Recvmmsg wrapper that also returns per-message
// ancillary control data, so this builds the mmsghdr array and issues the
// raw syscall directly, the Go equivalent of the original's
// ::recvmmsg(fd, msgs, batchSize, MSG_DONTWAIT, nullptr) call
// (_examples/original_source/src/UDPReceiver.cc).

package live

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmsghdr mirrors struct mmsghdr { struct msghdr msg_hdr; unsigned int msg_len; }.
// Msghdr already carries the trailing padding x86-64 needs.
type mmsghdr struct {
	Hdr unix.Msghdr
	Len uint32
	_   uint32
}

// recvBatch receives up to len(slots) datagrams into slots/names/controls
// in one non-blocking syscall, returning the number of messages filled.
// Returns (0, nil) on EAGAIN/EWOULDBLOCK; any other negative result is
// silently ignored for this cycle, per spec's failure model for the
// vectorized receive primitive.
func recvBatch(fd int32, msgs []mmsghdr) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	n, _, errno := unix.Syscall6(
		unix.SYS_RECVMMSG,
		uintptr(fd),
		uintptr(unsafe.Pointer(&msgs[0])),
		uintptr(len(msgs)),
		uintptr(unix.MSG_DONTWAIT),
		0, 0,
	)
	if errno != 0 {
		if errno == unix.EAGAIN || errno == unix.EWOULDBLOCK || errno == unix.EINTR {
			return 0, nil
		}
		return 0, errno
	}
	return int(n), nil
}
