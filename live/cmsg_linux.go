//go:build linux

// File: live/cmsg_linux.go
// Author: momentics <momentics@gmail.com>
//
// Ancillary control-message walk for SO_TIMESTAMPNS, grounded on the
// SocketControlMessage-walk pattern from
// _examples/other_examples/database64128-swgp-go__cmsg.go, generalized
// from that package's Pktinfo extraction to kernel timestamp extraction.

package live

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/atupone/AtuReactor/reactor"
)

// controlBufferSize is sized for exactly one SCM_TIMESTAMPNS control
// message: cmsg header plus a struct timespec payload.
var controlBufferSize = unix.CmsgSpace(int(unsafe.Sizeof(unix.Timespec{})))

// extractTimestamp scans control for SOL_SOCKET/SCM_TIMESTAMPNS and
// returns the embedded timestamp, or the zero Timestamp if absent.
func extractTimestamp(control []byte) reactor.Timestamp {
	msgs, err := unix.ParseSocketControlMessage(control)
	if err != nil {
		return reactor.Timestamp{}
	}
	for _, m := range msgs {
		if m.Header.Level != unix.SOL_SOCKET || m.Header.Type != unix.SCM_TIMESTAMPNS {
			continue
		}
		if len(m.Data) < int(unsafe.Sizeof(unix.Timespec{})) {
			continue
		}
		ts := *(*unix.Timespec)(unsafe.Pointer(&m.Data[0]))
		return reactor.Timestamp{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)}
	}
	return reactor.Timestamp{}
}
