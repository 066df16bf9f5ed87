//go:build linux

// File: live/socket_linux.go
// Author: momentics <momentics@gmail.com>
//
// Dual-stack non-blocking UDP socket setup: attempt IPv6 first, fall back
// to IPv4 on EAFNOSUPPORT, matching UDPReceiver::subscribe
// (_examples/original_source/src/UDPReceiver.cc).

package live

import (
	"golang.org/x/sys/unix"

	"github.com/atupone/AtuReactor/api"
	"github.com/atupone/AtuReactor/internal/fdutil"
)

// openDualStackSocket creates a non-blocking UDP socket bound to the
// wildcard address on port, preferring IPv6-with-v4-mapped addresses and
// falling back to IPv4-only when the kernel has no IPv6 support. It
// returns the owned fd and the actually-bound port (resolved via
// getsockname when port == 0).
func openDualStackSocket(port uint16) (fdutil.FD, uint16, error) {
	fd, isV6, err := tryOpenUDP(unix.AF_INET6)
	if err != nil {
		if err != unix.EAFNOSUPPORT {
			return fdutil.FD{}, 0, api.Wrap(api.ErrCodeSystem, "live: socket(AF_INET6)", err)
		}
		fd, isV6, err = tryOpenUDP(unix.AF_INET)
		if err != nil {
			return fdutil.FD{}, 0, api.Wrap(api.ErrCodeSystem, "live: socket(AF_INET)", err)
		}
	}
	owned := fdutil.New(fd)

	if err := unix.SetNonblock(fd, true); err != nil {
		owned.Close()
		return fdutil.FD{}, 0, api.Wrap(api.ErrCodeSystem, "live: set non-blocking", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		owned.Close()
		return fdutil.FD{}, 0, api.Wrap(api.ErrCodeSystem, "live: SO_REUSEADDR", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		owned.Close()
		return fdutil.FD{}, 0, api.Wrap(api.ErrCodeSystem, "live: SO_REUSEPORT", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPNS, 1); err != nil {
		owned.Close()
		return fdutil.FD{}, 0, api.Wrap(api.ErrCodeSystem, "live: SO_TIMESTAMPNS", err)
	}
	if isV6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
			owned.Close()
			return fdutil.FD{}, 0, api.Wrap(api.ErrCodeSystem, "live: IPV6_V6ONLY", err)
		}
	}

	if err := bindWildcard(fd, isV6, port); err != nil {
		owned.Close()
		return fdutil.FD{}, 0, err
	}

	actual, err := resolveBoundPort(fd, isV6)
	if err != nil {
		owned.Close()
		return fdutil.FD{}, 0, err
	}

	return owned, actual, nil
}

func tryOpenUDP(family int) (int, bool, error) {
	fd, err := unix.Socket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return -1, false, err
	}
	return fd, family == unix.AF_INET6, nil
}

func bindWildcard(fd int, isV6 bool, port uint16) error {
	if isV6 {
		sa := &unix.SockaddrInet6{Port: int(port)}
		if err := unix.Bind(fd, sa); err != nil {
			return api.Wrap(api.ErrCodeSystem, "live: bind", err)
		}
		return nil
	}
	sa := &unix.SockaddrInet4{Port: int(port)}
	if err := unix.Bind(fd, sa); err != nil {
		return api.Wrap(api.ErrCodeSystem, "live: bind", err)
	}
	return nil
}

func resolveBoundPort(fd int, isV6 bool) (uint16, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, api.Wrap(api.ErrCodeSystem, "live: getsockname", err)
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet6:
		return uint16(a.Port), nil
	case *unix.SockaddrInet4:
		return uint16(a.Port), nil
	default:
		_ = isV6
		return 0, api.NewError(api.ErrCodeSystem, "live: unexpected sockaddr type from getsockname")
	}
}
