// File: replay/format.go
// Author: momentics <momentics@gmail.com>
//
// Dialect detection for the legacy pcap magic numbers and the
// next-generation Section Header Block magic, per spec's magic-number
// table, grounded on PcapReceiver::openFile's magic switch
// (_examples/original_source/src/PcapReceiver.cc).

package replay

import "encoding/binary"

const (
	magicLegacyUsNative = 0xA1B2C3D4
	magicLegacyUsSwap   = 0xD4C3B2A1
	magicLegacyNsNative = 0xA1B23C4D
	magicLegacyNsSwap   = 0x4D3C2B1A
	magicNextGenSHB     = 0x0A0D0D0A

	shbMagicNative = 0x1A2B3C4D
	shbMagicSwap   = 0x4D3C2B1A

	legacyFileHeaderLen = 24
	legacyPktHeaderLen  = 16

	blockTypeIDB = 0x00000001
	blockTypeEPB = 0x00000006
)

// legacyFileHeader is the fields of the 24-byte on-disk legacy pcap
// global header that the replayer actually consults; version, timezone,
// sigfigs and snaplen are parsed by nothing downstream of open().
type legacyFileHeader struct {
	Magic    uint32
	LinkType uint32
}

func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func swap32(v uint32) uint32 {
	return (v&0x000000FF)<<24 | (v&0x0000FF00)<<8 | (v&0x00FF0000)>>8 | (v&0xFF000000)>>24
}

func swap16(v uint16) uint16 {
	return v<<8 | v>>8
}

// detectDialect inspects the first 4 bytes of data and classifies the
// capture, returning whether it is next-gen, whether fields need byte
// swapping, and whether sub-second units are nanoseconds.
func detectDialect(data []byte) (isNextGen, byteSwapped, isNanosecond bool, ok bool) {
	if len(data) < 4 {
		return false, false, false, false
	}
	magic := le32(data[0:4])
	switch magic {
	case magicLegacyUsNative:
		return false, false, false, true
	case magicLegacyUsSwap:
		return false, true, false, true
	case magicLegacyNsNative:
		return false, false, true, true
	case magicLegacyNsSwap:
		return false, true, true, true
	case magicNextGenSHB:
		return true, false, true, true
	}
	return false, false, false, false
}

// parseLegacyFileHeader decodes the 24-byte legacy header, byte-swapping
// every field (including the link type) when byteSwapped is set — unlike
// the original, which only swaps the link-type field and leaves
// ts_sec/ts_usec/caplen/len alone in the per-packet header; spec.md
// requires those swapped too (see legacy.go), so the file header is
// swapped consistently here.
func parseLegacyFileHeader(data []byte, byteSwapped bool) legacyFileHeader {
	raw := func(off int) uint32 {
		v := le32(data[off : off+4])
		if byteSwapped {
			v = swap32(v)
		}
		return v
	}
	var h legacyFileHeader
	h.Magic = raw(0)
	h.LinkType = raw(20)
	return h
}
