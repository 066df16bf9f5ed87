// File: replay/layers.go
// Author: momentics <momentics@gmail.com>
//
// Manual link/network/transport layer decode: Ethernet II with optional
// single 802.1Q tag, Linux cooked capture v1 (DLT 113), IPv4, UDP. No
// libpcap/gopacket dependency, matching PcapReceiver::parseAndDispatch's
// raw offset arithmetic
// (_examples/original_source/src/PcapReceiver.cc), generalized from
// struct-cast field reads to explicit big-endian byte reads.

package replay

import (
	"encoding/binary"

	"github.com/atupone/AtuReactor/reactor"
)

const (
	linkTypeEthernet = 1
	linkTypeCookedV1 = 113

	etherTypeVLAN = 0x8100
	etherTypeIPv4 = 0x0800

	ipProtoUDP = 17
)

// dispatchFrame decodes an Ethernet/cooked-capture + IPv4 + UDP frame and
// invokes the destination port's handler. Any structural mismatch or
// length-check failure is a silent drop, per spec's "corrupted captures
// should not fail the stream" policy — caplen != len is checked by the
// caller before this is reached.
func (p *Replayer) dispatchFrame(ts reactor.Timestamp, payload []byte, linkType uint16) {
	rest, etherType, ok := decodeLink(payload, linkType)
	if !ok || etherType != etherTypeIPv4 {
		return
	}
	udpPayload, dstPort, ok := decodeIPv4UDP(rest)
	if !ok {
		return
	}
	entry := p.portTable[dstPort]
	if entry == nil || entry.handler == nil {
		return
	}
	entry.handler(entry.context, udpPayload, reactor.StatusOK, ts)
}

// decodeLink strips the link-layer header (and, for Ethernet, an
// optional single VLAN tag), returning the remaining bytes and the
// resolved ethertype.
func decodeLink(frame []byte, linkType uint16) (rest []byte, etherType uint16, ok bool) {
	switch linkType {
	case linkTypeEthernet:
		if len(frame) < 14 {
			return nil, 0, false
		}
		et := binary.BigEndian.Uint16(frame[12:14])
		rest = frame[14:]
		if et == etherTypeVLAN {
			if len(rest) < 4 {
				return nil, 0, false
			}
			et = binary.BigEndian.Uint16(rest[2:4])
			rest = rest[4:]
		}
		return rest, et, true
	case linkTypeCookedV1:
		if len(frame) < 16 {
			return nil, 0, false
		}
		et := binary.BigEndian.Uint16(frame[14:16])
		return frame[16:], et, true
	default:
		return nil, 0, false
	}
}

// decodeIPv4UDP requires an IPv4 header carrying UDP and returns the UDP
// payload and destination port.
func decodeIPv4UDP(data []byte) (payload []byte, dstPort uint16, ok bool) {
	if len(data) < 20 {
		return nil, 0, false
	}
	version := data[0] >> 4
	if version != 4 {
		return nil, 0, false
	}
	ihl := int(data[0]&0x0F) * 4
	if ihl < 20 || len(data) < ihl {
		return nil, 0, false
	}
	if data[9] != ipProtoUDP {
		return nil, 0, false
	}
	udp := data[ihl:]
	if len(udp) < 8 {
		return nil, 0, false
	}
	dstPort = binary.BigEndian.Uint16(udp[2:4])
	udpLen := binary.BigEndian.Uint16(udp[4:6])
	if udpLen < 8 {
		return nil, 0, false
	}
	payloadLen := int(udpLen) - 8
	if len(udp)-8 < payloadLen {
		return nil, 0, false
	}
	return udp[8 : 8+payloadLen], dstPort, true
}
