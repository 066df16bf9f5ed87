//go:build linux

// File: replay/mmap_linux.go
// Author: momentics <momentics@gmail.com>
//
// Read-only private mapping of a capture file with sequential-access and
// prefetch advice, per PcapReceiver::openFile
// (_examples/original_source/src/PcapReceiver.cc).

package replay

import (
	"golang.org/x/sys/unix"

	"github.com/atupone/AtuReactor/api"
	"github.com/atupone/AtuReactor/internal/fdutil"
)

func mmapCaptureFile(path string) (fdutil.FD, []byte, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return fdutil.FD{}, nil, api.Wrap(api.ErrCodeSystem, "replay: open", err)
	}
	owned := fdutil.New(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		owned.Close()
		return fdutil.FD{}, nil, api.Wrap(api.ErrCodeSystem, "replay: fstat", err)
	}
	size := int(st.Size)
	if size == 0 {
		owned.Close()
		return fdutil.FD{}, nil, api.NewError(api.ErrCodeFormat, "replay: empty capture file")
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		owned.Close()
		return fdutil.FD{}, nil, api.Wrap(api.ErrCodeSystem, "replay: mmap", err)
	}
	unix.Madvise(data, unix.MADV_SEQUENTIAL)
	unix.Madvise(data, unix.MADV_WILLNEED)

	return owned, data, nil
}

func munmapCaptureFile(data []byte) error {
	if data == nil {
		return nil
	}
	return unix.Munmap(data)
}
