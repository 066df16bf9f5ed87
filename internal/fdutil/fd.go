// File: internal/fdutil/fd.go
// Author: momentics <momentics@gmail.com>
//
// RAII-style file descriptor ownership, the Go analogue of the original
// atu_reactor::ScopedFd (see _examples/original_source/include/atu_reactor/ScopedFd.h).

package fdutil

import "golang.org/x/sys/unix"

// FD owns a raw OS file descriptor and closes it exactly once.
// The zero value is not usable; construct with New.
type FD struct {
	fd     int
	closed bool
}

// New wraps an already-open descriptor.
func New(fd int) FD {
	return FD{fd: fd}
}

// Int returns the raw descriptor for use in syscalls.
func (f *FD) Int() int { return f.fd }

// Valid reports whether the descriptor has not been closed or released.
func (f *FD) Valid() bool { return !f.closed && f.fd >= 0 }

// Close releases the descriptor. Safe to call more than once.
func (f *FD) Close() error {
	if f.closed || f.fd < 0 {
		return nil
	}
	f.closed = true
	return unix.Close(f.fd)
}

// Release hands ownership of the descriptor to the caller; Close becomes a no-op.
func (f *FD) Release() int {
	fd := f.fd
	f.closed = true
	f.fd = -1
	return fd
}
