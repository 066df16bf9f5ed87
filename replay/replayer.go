// File: replay/replayer.go
// Author: momentics <momentics@gmail.com>
//
// Replayer lifecycle: open/format-detect, subscribe/unsubscribe, and the
// start/step/process_batch drive loop, per
// _examples/original_source/src/PcapReceiver.cc.

package replay

import (
	"time"

	"github.com/atupone/AtuReactor/api"
	"github.com/atupone/AtuReactor/control"
	"github.com/atupone/AtuReactor/internal/fdutil"
	"github.com/atupone/AtuReactor/reactor"
)

// ifaceInfo is a next-gen interface table entry: its link type and the
// divisor that converts its raw timestamp ticks into nanoseconds.
type ifaceInfo struct {
	linkType uint16
	divisor  uint64
}

type portEntry struct {
	context any
	handler reactor.HandlerFunc
}

// Replayer replays a memory-mapped capture file through a Reactor,
// dispatching UDP payloads per destination port.
type Replayer struct {
	guard fdutil.ThreadGuard

	react *reactor.Reactor
	cfg   PcapConfig

	file    fdutil.FD
	mapping []byte
	cursor  int

	isNextGen    bool
	byteSwapped  bool
	isNanosecond bool
	legacyLink   uint16
	headerLen    int

	ifaces []ifaceInfo

	portTable [65536]*portEntry

	pcapStartTS reactor.Timestamp
	wallStartTS time.Time
	firstPacket bool

	finished bool
	awaiting bool // a TIMED future-packet timer is already pending

	dispatchedTotal int

	ctrl *control.Controller
}

// NewReplayer constructs a Replayer bound to react. Call Open before
// Start/Step.
func NewReplayer(react *reactor.Reactor, cfg PcapConfig) *Replayer {
	p := &Replayer{
		guard:       fdutil.NewThreadGuard(),
		react:       react,
		cfg:         cfg,
		firstPacket: true,
		ctrl:        control.NewController(),
	}
	p.ctrl.Debug.RegisterProbe("replay.finished", func() any { return p.finished })
	p.ctrl.Debug.RegisterProbe("replay.cursor", func() any { return p.cursor })

	// batch_size, flood_batch_limit, mode, and speed_multiplier are all
	// live-mutable: a SetConfig call takes effect starting with the next
	// processBatch/Step call via the OnReload listener below.
	p.ctrl.Config.SetConfig(map[string]any{
		"batch_size":        cfg.BatchSize,
		"mode":              int(cfg.Mode),
		"speed_multiplier":  cfg.SpeedMultiplier,
		"flood_batch_limit": cfg.FloodBatchLimit,
		"deliver_truncated": cfg.DeliverTruncated,
	})
	p.ctrl.Config.OnReload(func() {
		snap := p.ctrl.Config.GetSnapshot()
		if v, ok := snap["batch_size"].(int); ok {
			p.cfg.BatchSize = v
		}
		if v, ok := snap["mode"].(int); ok {
			p.cfg.Mode = ReplayMode(v)
		}
		if v, ok := snap["speed_multiplier"].(float64); ok {
			p.cfg.SpeedMultiplier = v
		}
		if v, ok := snap["flood_batch_limit"].(int); ok {
			p.cfg.FloodBatchLimit = v
		}
		if v, ok := snap["deliver_truncated"].(bool); ok {
			p.cfg.DeliverTruncated = v
		}
	})
	return p
}

// Debug exposes this replayer's probe registry.
func (p *Replayer) Debug() *control.DebugProbes { return p.ctrl.Debug }

// Metrics exposes this replayer's counters.
func (p *Replayer) Metrics() *control.MetricsRegistry { return p.ctrl.Metrics }

// Control exposes the replayer's config/debug/metrics surface for callers
// that want to reconfigure pacing mode, speed, or batch limits live.
func (p *Replayer) Control() *control.Controller { return p.ctrl }

// Open memory-maps path and detects its dialect.
func (p *Replayer) Open(path string) error {
	p.guard.Check("Replayer.Open")
	file, data, err := mmapCaptureFile(path)
	if err != nil {
		return err
	}

	isNextGen, byteSwapped, isNanosecond, ok := detectDialect(data)
	if !ok {
		file.Close()
		return api.NewError(api.ErrCodeFormat, "replay: unrecognized capture magic")
	}

	p.file = file
	p.mapping = data
	p.isNextGen = isNextGen
	p.byteSwapped = byteSwapped
	p.isNanosecond = isNanosecond

	if isNextGen {
		swapped, ok := detectSHBByteOrder(data)
		if !ok {
			file.Close()
			return api.NewError(api.ErrCodeFormat, "replay: unrecognized section header byte-order magic")
		}
		p.byteSwapped = swapped
		p.headerLen = 0
	} else {
		if len(data) < legacyFileHeaderLen {
			file.Close()
			return api.NewError(api.ErrCodeFormat, "replay: truncated legacy file header")
		}
		h := parseLegacyFileHeader(data, byteSwapped)
		p.legacyLink = uint16(h.LinkType)
		p.headerLen = legacyFileHeaderLen
	}

	p.cursor = p.headerLen
	p.finished = false
	p.firstPacket = true
	return nil
}

// Rewind resets the read cursor to just past the format header (or byte
// 0 for next-gen) and clears finished/first_packet state, so a
// subsequent replay reproduces the same dispatched sequence.
func (p *Replayer) Rewind() error {
	p.guard.Check("Replayer.Rewind")
	if p.mapping == nil {
		return api.NewError(api.ErrCodeInvalidArg, "replay: not open")
	}
	p.cursor = p.headerLen
	p.finished = false
	p.firstPacket = true
	p.awaiting = false
	p.dispatchedTotal = 0
	if p.isNextGen {
		p.ifaces = p.ifaces[:0]
	}
	return nil
}

// Subscribe stores {context, handler} at port_table[port] and returns
// port itself as its opaque id.
func (p *Replayer) Subscribe(port uint16, context any, handler reactor.HandlerFunc) (uint16, error) {
	p.guard.Check("Replayer.Subscribe")
	if handler == nil {
		return 0, api.NewError(api.ErrCodeInvalidArg, "replay: nil handler")
	}
	p.portTable[port] = &portEntry{context: context, handler: handler}
	return port, nil
}

// Unsubscribe clears port_table[port].
func (p *Replayer) Unsubscribe(port uint16) error {
	p.guard.Check("Replayer.Unsubscribe")
	if p.portTable[port] == nil {
		return api.NewError(api.ErrCodeNotFound, "replay: port not subscribed")
	}
	p.portTable[port] = nil
	return nil
}

// IsFinished reports whether the replay has reached end of file.
func (p *Replayer) IsFinished() bool {
	return p.finished
}

// Start schedules the first batch as a zero-delay deferred task in
// ModeTimed/ModeFlood; in ModeStep it only resets first_packet.
func (p *Replayer) Start() {
	p.guard.Check("Replayer.Start")
	p.firstPacket = true
	if p.cfg.Mode == ModeStep {
		return
	}
	p.react.RunInLoop(p.processBatch)
}

// Step delivers at most one packet, returning false if the file is
// finished or (in ModeTimed) the next packet is scheduled for the
// future and a catch-up timer has been armed.
func (p *Replayer) Step() bool {
	p.guard.Check("Replayer.Step")
	if p.finished {
		return false
	}
	if p.isNextGen {
		return p.stepNextGen()
	}
	return p.stepLegacy()
}

// processBatch drains up to the configured limit of packets per call,
// then reschedules itself per spec's batch-strategy rules.
func (p *Replayer) processBatch() {
	limit := p.cfg.BatchSize
	if p.cfg.Mode == ModeFlood {
		limit = p.cfg.FloodBatchLimit
	}

	count := 0
	hitFutureWait := false
	for count < limit {
		p.awaiting = false
		if !p.Step() {
			if p.finished {
				break
			}
			// Step returned false without finishing: a TIMED
			// future-packet wait, which has already scheduled its own
			// timer; awaiting, set by the TIMED path before returning,
			// records this.
			if p.awaiting {
				hitFutureWait = true
			}
			break
		}
		count++
	}

	p.dispatchedTotal += count
	p.ctrl.Metrics.Set("replay.packets_dispatched", p.dispatchedTotal)

	if p.finished {
		return
	}
	switch p.cfg.Mode {
	case ModeFlood:
		p.react.RunInLoop(p.processBatch)
	case ModeTimed:
		if !hitFutureWait {
			p.react.RunInLoop(p.processBatch)
		}
	}
}

// Close releases the capture file mapping and descriptor.
func (p *Replayer) Close() error {
	if p.mapping == nil {
		return nil
	}
	err := munmapCaptureFile(p.mapping)
	p.mapping = nil
	if cerr := p.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Shutdown implements api.GracefulShutdown; it is Close under the name
// that interface requires.
func (p *Replayer) Shutdown() error { return p.Close() }

var _ api.GracefulShutdown = (*Replayer)(nil)
