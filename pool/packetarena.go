// File: pool/packetarena.go
// Author: momentics <momentics@gmail.com>
//
// PacketArena is the zero-copy packet buffer backing a batched UDP receive.
// It is one contiguous mapping carved into fixed-stride, 64-byte aligned
// slots plus one ancillary (cmsg) region per slot, per
// _examples/original_source/src/PacketReceiver.cc's constructor:
//
//	m_alignedBufferSize = (bufferSize + 63) & ~63;
//	mmap(..., batchSize * alignedBufferSize, ... MAP_HUGETLB ...);
//
// The arena is owned and touched by exactly one goroutine: the kernel
// borrows slot memory mutably during recvmmsg, the reactor's callback
// borrows it immutably for the duration of the dispatch, and those
// lifetimes never overlap because nothing else reads or writes it between
// batches.
package pool

import "github.com/atupone/AtuReactor/api"

// alignUp rounds n up to the next multiple of align, where align is a
// power of two.
func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// PacketArena is a batch_size*stride contiguous packet buffer plus one
// ancillary control-message region per slot.
type PacketArena struct {
	base       []byte
	control    []byte
	stride     int
	ctrlStride int
	batchSize  int
	bufferSize int
	huge       bool
	closer     func() error
}

// NewPacketArena allocates an arena sized for batchSize slots of
// bufferSize payload bytes and ctrlSize ancillary bytes each. It prefers
// huge pages, falling back to ordinary anonymous pages on failure.
func NewPacketArena(batchSize, bufferSize, ctrlSize int) (*PacketArena, error) {
	if batchSize <= 0 || bufferSize <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArg, "packet arena: batchSize and bufferSize must be positive")
	}
	stride := alignUp(bufferSize, 64)
	ctrlStride := alignUp(ctrlSize, 64)

	base, huge, closeBase, err := mmapArena(batchSize * stride)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeResourceExhausted, "packet arena: allocate payload region", err)
	}
	var control []byte
	var closeCtrl func() error
	if ctrlStride > 0 {
		control, _, closeCtrl, err = mmapArena(batchSize * ctrlStride)
		if err != nil {
			closeBase()
			return nil, api.Wrap(api.ErrCodeResourceExhausted, "packet arena: allocate control region", err)
		}
	}

	return &PacketArena{
		base:       base,
		control:    control,
		stride:     stride,
		ctrlStride: ctrlStride,
		batchSize:  batchSize,
		bufferSize: bufferSize,
		huge:       huge,
		closer: func() error {
			err := closeBase()
			if closeCtrl != nil {
				if cerr := closeCtrl(); cerr != nil && err == nil {
					err = cerr
				}
			}
			return err
		},
	}, nil
}

// Slot returns the payload buffer for batch index k, capacity bufferSize.
func (a *PacketArena) Slot(k int) []byte {
	off := k * a.stride
	return a.base[off : off+a.bufferSize]
}

// Control returns the ancillary control-message buffer for batch index k.
// Its length must be reset to full capacity before every recvmmsg call,
// since the kernel overwrites it with the actual bytes written.
func (a *PacketArena) Control(k int) []byte {
	if a.ctrlStride == 0 {
		return nil
	}
	off := k * a.ctrlStride
	return a.control[off : off+a.ctrlStride]
}

// BatchSize reports the number of slots in the arena.
func (a *PacketArena) BatchSize() int { return a.batchSize }

// HugePages reports whether the backing mapping used huge pages.
func (a *PacketArena) HugePages() bool { return a.huge }

// Close unmaps the arena. Not safe to call while a receive is in flight.
func (a *PacketArena) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}
