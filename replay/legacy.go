// File: replay/legacy.go
// Author: momentics <momentics@gmail.com>
//
// Per-packet step for the legacy (pre-next-gen) pcap dialect, per
// PcapReceiver::step
// (_examples/original_source/src/PcapReceiver.cc). Unlike that source,
// every per-packet header field is byte-swapped when the dialect calls
// for it — spec.md is explicit that ts_sec/ts_usec/caplen/len all need
// swapping, where the original appears to only swap the link-type field
// in the file header and leaves the per-packet fields alone.

package replay

import (
	"time"

	"github.com/atupone/AtuReactor/reactor"
)

type legacyPacketHeader struct {
	tsSec  uint32
	tsSub  uint32
	caplen uint32
	length uint32
}

func readLegacyPacketHeader(data []byte, byteSwapped bool) legacyPacketHeader {
	field := func(off int) uint32 {
		v := le32(data[off : off+4])
		if byteSwapped {
			v = swap32(v)
		}
		return v
	}
	return legacyPacketHeader{
		tsSec:  field(0),
		tsSub:  field(4),
		caplen: field(8),
		length: field(12),
	}
}

// stepLegacy implements Replayer.Step for the legacy dialect.
func (p *Replayer) stepLegacy() bool {
	if p.cursor+legacyPktHeaderLen > len(p.mapping) {
		p.finished = true
		return false
	}

	hdr := readLegacyPacketHeader(p.mapping[p.cursor:], p.byteSwapped)
	subMultiplier := uint32(1000)
	if p.isNanosecond {
		subMultiplier = 1
	}
	ts := reactor.Timestamp{Sec: int64(hdr.tsSec), Nsec: int64(hdr.tsSub * subMultiplier)}

	if p.cfg.Mode == ModeTimed {
		p.anchorIfFirst(ts)
		if deferred := p.scheduleIfFuture(ts); deferred {
			return false
		}
	}

	payloadStart := p.cursor + legacyPktHeaderLen
	if payloadStart+int(hdr.caplen) > len(p.mapping) {
		p.finished = true
		return false
	}
	payload := p.mapping[payloadStart : payloadStart+int(hdr.caplen)]

	if hdr.caplen == hdr.length {
		p.dispatchFrame(ts, payload, p.legacyLink)
	}

	p.cursor = payloadStart + int(hdr.caplen)
	return true
}

// scheduleIfFuture checks whether ts's target instant is still ahead of
// now; if so it arms a reactor timer for the remaining delay that
// re-enters batch processing, without advancing the cursor, and reports
// true so the caller does not treat this as a finished/delivered step.
func (p *Replayer) scheduleIfFuture(ts reactor.Timestamp) bool {
	target := p.targetInstant(ts)
	delay := target.Sub(time.Now())
	if delay <= 0 {
		return false
	}
	p.awaiting = true
	p.react.RunAfter(delay, p.processBatch)
	return true
}
