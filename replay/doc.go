// Package replay
// Author: momentics <momentics@gmail.com>
//
// FileReplayer: memory-maps a pcap capture file, detects its dialect
// (legacy micro/nanosecond, big/little-endian, or next-generation block
// format), iterates packets, decodes Ethernet/VLAN/cooked-capture,
// IPv4, and UDP layers to find the destination port, and dispatches to
// the registered callback — optionally paced by the capture's own
// timestamps. Implements
// _examples/original_source/include/atu_reactor/PcapReceiver.h /
// src/PcapReceiver.cc, built on the same pool.PacketArena-adjacent
// mmap idiom as the live package and the teacher's bufferpool_linux.go.
package replay
