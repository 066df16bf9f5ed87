//go:build !linux

// File: pool/packetarena_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux backend: plain heap allocation. AtuReactor's live and replay
// paths are Linux-only (epoll/timerfd/recvmmsg), so this only keeps the
// module linkable elsewhere.

package pool

func mmapArena(length int) (data []byte, huge bool, closer func() error, err error) {
	return make([]byte, length), false, func() error { return nil }, nil
}
