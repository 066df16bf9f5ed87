//go:build linux

// File: pool/packetarena_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux backend for PacketArena: anonymous mmap, preferring MAP_HUGETLB
// and rounding the request up to the huge page size, falling back to an
// ordinary page-backed mapping on any huge-page mmap failure, per
// _examples/original_source/src/PacketReceiver.cc.

package pool

import "golang.org/x/sys/unix"

const hugePageSize = 2 << 20 // 2 MiB, the common x86-64 huge page size

// mmapArena maps at least length bytes, preferring huge pages.
func mmapArena(length int) (data []byte, huge bool, closer func() error, err error) {
	hugeLen := alignUp(length, hugePageSize)
	data, err = unix.Mmap(-1, 0, hugeLen,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE|unix.MAP_HUGETLB)
	if err == nil {
		data = data[:length]
		return data, true, func() error { return unix.Munmap(data[:hugeLen:hugeLen]) }, nil
	}

	pageLen := alignUp(length, unix.Getpagesize())
	data, err = unix.Mmap(-1, 0, pageLen,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, nil, err
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
	data = data[:length]
	return data, false, func() error { return unix.Munmap(data[:pageLen:pageLen]) }, nil
}
