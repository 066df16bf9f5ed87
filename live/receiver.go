//go:build linux

// File: live/receiver.go
// Author: momentics <momentics@gmail.com>
//
// Receiver: shared per-port UDP subscription state plus the batched
// recvmmsg read path. Generalizes PacketReceiver's common subscribe
// bookkeeping and UDPReceiver's handleRead
// (_examples/original_source/src/PacketReceiver.cc,
// _examples/original_source/src/UDPReceiver.cc) into a single Go type,
// since Go has no base-class inheritance to split them across.
package live

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/atupone/AtuReactor/api"
	"github.com/atupone/AtuReactor/control"
	"github.com/atupone/AtuReactor/internal/fdutil"
	"github.com/atupone/AtuReactor/pool"
	"github.com/atupone/AtuReactor/reactor"
)

type subscription struct {
	fd      fdutil.FD
	port    uint16
	context any
	handler reactor.HandlerFunc
}

// Receiver holds one packet arena shared across every subscribed port and
// dispatches batches of datagrams read from whichever socket became
// ready. It is thread-hostile like every other component in this module.
type Receiver struct {
	guard fdutil.ThreadGuard

	react *reactor.Reactor
	cfg   ReceiverConfig
	arena *pool.PacketArena

	names  []unix.RawSockaddrAny
	msgs   []mmsghdr
	iovecs []unix.Iovec

	byPort map[uint16]*subscription
	byFD   map[int32]*subscription

	ctrl *control.Controller

	bytesRxTotal int64

	closed bool
}

// NewReceiver allocates a packet arena sized per cfg and returns a
// Receiver ready to accept subscriptions.
func NewReceiver(react *reactor.Reactor, cfg ReceiverConfig) (*Receiver, error) {
	arena, err := pool.NewPacketArena(cfg.BatchSize, cfg.BufferSize, controlBufferSize)
	if err != nil {
		return nil, err
	}
	r := &Receiver{
		guard:  fdutil.NewThreadGuard(),
		react:  react,
		cfg:    cfg,
		arena:  arena,
		names:  make([]unix.RawSockaddrAny, cfg.BatchSize),
		msgs:   make([]mmsghdr, cfg.BatchSize),
		iovecs: make([]unix.Iovec, cfg.BatchSize),
		byPort: make(map[uint16]*subscription),
		byFD:   make(map[int32]*subscription),
		ctrl:   control.NewController(),
	}
	for k := range r.msgs {
		r.prepareSlot(k)
	}
	r.ctrl.Debug.RegisterProbe("live.subscriptions", func() any { return len(r.byPort) })
	r.ctrl.Debug.RegisterProbe("live.arena_hugepages", func() any { return r.arena.HugePages() })

	// batch_size and buffer_size are fixed at construction (they size the
	// packet arena); max_fds is the one live-mutable knob, applied on the
	// next Subscribe call after a SetConfig.
	r.ctrl.Config.SetConfig(map[string]any{
		"max_fds":     cfg.MaxFDs,
		"batch_size":  cfg.BatchSize,
		"buffer_size": cfg.BufferSize,
	})
	r.ctrl.Config.OnReload(func() {
		if v, ok := r.ctrl.Config.GetSnapshot()["max_fds"].(int); ok {
			r.cfg.MaxFDs = v
		}
	})

	return r, nil
}

func (r *Receiver) prepareSlot(k int) {
	payload := r.arena.Slot(k)
	ctrl := r.arena.Control(k)

	r.iovecs[k] = unix.Iovec{Base: &payload[0]}
	r.iovecs[k].SetLen(len(payload))

	m := &r.msgs[k]
	m.Hdr.Name = (*byte)(unsafe.Pointer(&r.names[k]))
	m.Hdr.Iov = &r.iovecs[k]
	m.Hdr.SetIovlen(1)
	if len(ctrl) > 0 {
		m.Hdr.Control = &ctrl[0]
	}
}

// Debug exposes this receiver's probe registry.
func (r *Receiver) Debug() *control.DebugProbes { return r.ctrl.Debug }

// Metrics exposes this receiver's counters.
func (r *Receiver) Metrics() *control.MetricsRegistry { return r.ctrl.Metrics }

// Control exposes the receiver's config/debug/metrics surface for callers
// that want to reconfigure max_fds or read api.Control-shaped snapshots.
func (r *Receiver) Control() *control.Controller { return r.ctrl }

// Subscribe opens a dual-stack UDP socket bound to port (0 for an
// OS-assigned port), registers it with the reactor, and returns the
// actually-bound port.
func (r *Receiver) Subscribe(port uint16, context any, handler reactor.HandlerFunc) (uint16, error) {
	r.guard.Check("Receiver.Subscribe")
	if handler == nil {
		return 0, api.NewError(api.ErrCodeInvalidArg, "live: nil handler")
	}
	if _, exists := r.byPort[port]; port != 0 && exists {
		return 0, api.NewError(api.ErrCodeAddrInUse, "live: port already subscribed")
	}
	if len(r.byPort) >= r.cfg.MaxFDs {
		return 0, api.NewError(api.ErrCodeResourceExhausted, "live: max_fds reached")
	}

	fd, actual, err := openDualStackSocket(port)
	if err != nil {
		return 0, err
	}
	if _, exists := r.byPort[actual]; exists {
		fd.Close()
		return 0, api.NewError(api.ErrCodeAddrInUse, "live: port already subscribed")
	}

	sub := &subscription{fd: fd, port: actual, context: context, handler: handler}
	if err := r.react.AddSource(int32(fd.Int()), unix.EPOLLIN, r); err != nil {
		fd.Close()
		return 0, err
	}
	r.byPort[actual] = sub
	r.byFD[int32(fd.Int())] = sub
	r.ctrl.Metrics.Set("live.subscribed_ports", len(r.byPort))
	return actual, nil
}

// Unsubscribe removes port's registration and closes its socket.
func (r *Receiver) Unsubscribe(port uint16) error {
	r.guard.Check("Receiver.Unsubscribe")
	sub, ok := r.byPort[port]
	if !ok {
		return api.NewError(api.ErrCodeNotFound, "live: port not subscribed")
	}
	fd := int32(sub.fd.Int())
	if err := r.react.RemoveSource(fd); err != nil {
		return err
	}
	sub.fd.Close()
	delete(r.byPort, port)
	delete(r.byFD, fd)
	r.ctrl.Metrics.Set("live.subscribed_ports", len(r.byPort))
	return nil
}

// HandleBatchRead implements reactor.UDPSource. It is invoked by the
// reactor when fd becomes readable.
func (r *Receiver) HandleBatchRead(fd int32) {
	r.guard.Check("Receiver.HandleBatchRead")
	sub, ok := r.byFD[fd]
	if !ok {
		return
	}

	for k := range r.msgs {
		r.msgs[k].Hdr.SetControllen(len(r.arena.Control(k)))
		r.msgs[k].Hdr.Namelen = uint32(unsafe.Sizeof(r.names[k]))
	}

	n, err := recvBatch(fd, r.msgs)
	if err != nil {
		return
	}

	for k := 0; k < n; k++ {
		m := &r.msgs[k]
		length := int(m.Len)
		if length <= 0 {
			continue
		}
		status := reactor.StatusOK
		if m.Hdr.Flags&unix.MSG_TRUNC != 0 {
			status |= reactor.StatusTruncated
		}
		payload := r.arena.Slot(k)
		if length < len(payload) {
			payload = payload[:length]
		}
		ts := extractTimestamp(r.controlBytes(k, int(m.Hdr.Controllen)))
		sub.handler(sub.context, payload, status, ts)
		r.bytesRxTotal += int64(length)
		r.ctrl.Metrics.Set("live.bytes_rx", r.bytesRxTotal)
	}
}

func (r *Receiver) controlBytes(k, n int) []byte {
	full := r.arena.Control(k)
	if n < 0 || n > len(full) {
		n = len(full)
	}
	return full[:n]
}

// Close unsubscribes every port and releases the packet arena. Safe to
// call more than once.
func (r *Receiver) Close() error {
	r.guard.Check("Receiver.Close")
	if r.closed {
		return nil
	}
	r.closed = true
	for port := range r.byPort {
		if err := r.Unsubscribe(port); err != nil {
			return err
		}
	}
	return r.arena.Close()
}

// Shutdown implements api.GracefulShutdown; it is Close under the name
// that interface requires.
func (r *Receiver) Shutdown() error { return r.Close() }

var _ api.GracefulShutdown = (*Receiver)(nil)
