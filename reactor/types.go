// File: reactor/types.go
// Author: momentics <momentics@gmail.com>

package reactor

// Timestamp is a kernel-reported (seconds, nanoseconds) pair, shared by
// the live receive path and the capture replayer. The Go counterpart of
// the original atu_reactor::PacketMetadata's embedded timespec
// (_examples/original_source/include/atu_reactor/PacketMetadata.h).
type Timestamp struct {
	Sec  int64
	Nsec int64
}

// Status bits describe the outcome of a single dispatched datagram/packet.
type Status uint32

const (
	StatusOK        Status = 0
	StatusTruncated Status = 1 << 0
)

// HandlerFunc is invoked once per delivered datagram/packet. data is only
// valid for the duration of the call; implementations must not retain it.
type HandlerFunc func(context any, data []byte, status Status, ts Timestamp)

// TimerID identifies a pending one-shot or repeating timer.
type TimerID uint64

// dispatchKind tags the variant stored for each registered file
// descriptor, per the original EventLoop's tagged dispatch record:
// {Timer, UdpReceiver}. Polymorphism is by this tag, not by interface
// dispatch, matching the source's own design note on avoiding virtual
// dispatch for a two-variant union.
type dispatchKind uint8

const (
	kindTimer dispatchKind = iota
	kindUDP
)

// UDPSource is implemented by receivers that own a readable descriptor
// and know how to drain a batch of datagrams from it.
type UDPSource interface {
	HandleBatchRead(fd int32)
}

// dispatchRecord is the non-owning record the reactor keeps per
// registered descriptor; Reactor.sources maps fd -> record.
type dispatchRecord struct {
	kind dispatchKind
	fd   int32
	udp  UDPSource
}
