// File: replay/pacing.go
// Author: momentics <momentics@gmail.com>
//
// TIMED-mode target-instant computation, anchored once on the first
// delivered packet to avoid cumulative drift, per
// PcapReceiver::calculateTargetTime
// (_examples/original_source/src/PcapReceiver.cc) and spec.md's pacing
// design note on re-arming absolutely rather than relatively.

package replay

import (
	"time"

	"github.com/atupone/AtuReactor/reactor"
)

// deltaNanos returns ts - anchor as a signed nanosecond count, borrowing
// from seconds when the subtraction would otherwise produce a negative
// nanosecond remainder.
func deltaNanos(ts, anchor reactor.Timestamp) int64 {
	sec := ts.Sec - anchor.Sec
	nsec := ts.Nsec - anchor.Nsec
	if nsec < 0 {
		nsec += 1_000_000_000
		sec--
	}
	return sec*1_000_000_000 + nsec
}

// targetInstant computes the wall-clock instant at which ts should be
// delivered, given the pacing anchor and speed multiplier.
func (p *Replayer) targetInstant(ts reactor.Timestamp) time.Time {
	delta := deltaNanos(ts, p.pcapStartTS)
	if p.cfg.SpeedMultiplier != 1.0 && p.cfg.SpeedMultiplier > 0 {
		delta = int64(float64(delta) / p.cfg.SpeedMultiplier)
	}
	return p.wallStartTS.Add(time.Duration(delta))
}

// anchorIfFirst establishes the pacing anchor on the first packet
// delivered since construction or the last Rewind.
func (p *Replayer) anchorIfFirst(ts reactor.Timestamp) {
	if !p.firstPacket {
		return
	}
	p.pcapStartTS = ts
	p.wallStartTS = time.Now()
	p.firstPacket = false
}
