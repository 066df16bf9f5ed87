//go:build linux

// File: replay/replayer_test.go
// Author: momentics <momentics@gmail.com>

package replay

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/atupone/AtuReactor/reactor"
)

// buildLegacyCapture writes a minimal legacy pcap file with the given
// magic (selecting dialect) carrying n UDP-over-Ethernet-over-IPv4
// packets to dstPort, packet i timestamped at i*deltaMs milliseconds.
func buildLegacyCapture(t *testing.T, magic uint32, n int, dstPort uint16, deltaMs int) string {
	t.Helper()
	var buf bytes.Buffer

	writeU32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	writeU16 := func(v uint16) { binary.Write(&buf, binary.LittleEndian, v) }

	writeU32(magic)
	writeU16(2)
	writeU16(4)
	writeU32(0)
	writeU32(0)
	writeU32(65535)
	writeU32(1) // LINKTYPE_ETHERNET

	payload := []byte("hello-replay")
	for i := 0; i < n; i++ {
		frame := buildEthernetIPv4UDPFrame(t, dstPort, payload)
		writeU32(uint32(i * deltaMs / 1000))
		writeU32(uint32((i * deltaMs % 1000) * 1000))
		writeU32(uint32(len(frame)))
		writeU32(uint32(len(frame)))
		buf.Write(frame)
	}

	f, err := os.CreateTemp(t.TempDir(), "capture-*.pcap")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()
	return f.Name()
}

func buildEthernetIPv4UDPFrame(t *testing.T, dstPort uint16, payload []byte) []byte {
	t.Helper()
	var f bytes.Buffer
	f.Write(make([]byte, 12)) // dst+src MAC, don't care
	binary.Write(&f, binary.BigEndian, uint16(0x0800))

	udpLen := 8 + len(payload)
	ipLen := 20 + udpLen

	ip := make([]byte, 20)
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], uint16(ipLen))
	ip[8] = 64
	ip[9] = 17 // UDP
	ip[12], ip[13], ip[14], ip[15] = 127, 0, 0, 1
	ip[16], ip[17], ip[18], ip[19] = 127, 0, 0, 1
	f.Write(ip)

	udp := make([]byte, 8)
	binary.BigEndian.PutUint16(udp[0:2], 12345)
	binary.BigEndian.PutUint16(udp[2:4], dstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	f.Write(udp)
	f.Write(payload)

	return f.Bytes()
}

func newTestReplayer(t *testing.T, cfg PcapConfig) (*reactor.Reactor, *Replayer) {
	t.Helper()
	react, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	t.Cleanup(func() { react.Close() })
	return react, NewReplayer(react, cfg)
}

func TestFloodModeDeliversExactlyNPackets(t *testing.T) {
	path := buildLegacyCapture(t, magicLegacyUsNative, 5, 9000, 0)

	cfg := DefaultPcapConfig()
	cfg.Mode = ModeFlood
	react, p := newTestReplayer(t, cfg)
	if err := p.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	var payloads [][]byte
	if _, err := p.Subscribe(9000, nil, func(ctx any, data []byte, status reactor.Status, ts reactor.Timestamp) {
		cp := make([]byte, len(data))
		copy(cp, data)
		payloads = append(payloads, cp)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	p.Start()
	deadline := time.Now().Add(2 * time.Second)
	for !p.IsFinished() && time.Now().Before(deadline) {
		react.RunOnce(10)
	}

	if !p.IsFinished() {
		t.Fatal("replay did not finish in time")
	}
	if len(payloads) != 5 {
		t.Fatalf("expected 5 dispatched packets, got %d", len(payloads))
	}
	for _, pl := range payloads {
		if string(pl) != "hello-replay" {
			t.Fatalf("payload mismatch: %q", pl)
		}
	}
}

func TestByteSwappedCaptureDecodesIdenticallyToNative(t *testing.T) {
	nativePath := buildLegacyCapture(t, magicLegacyUsNative, 3, 9001, 0)
	swappedPath := buildLegacyCapture(t, magicLegacyUsNative, 3, 9001, 0)
	rewriteSwapped(t, swappedPath)

	collect := func(path string) [][]byte {
		cfg := DefaultPcapConfig()
		cfg.Mode = ModeFlood
		react, p := newTestReplayer(t, cfg)
		if err := p.Open(path); err != nil {
			t.Fatalf("Open(%s): %v", path, err)
		}
		defer p.Close()

		var got [][]byte
		p.Subscribe(9001, nil, func(ctx any, data []byte, status reactor.Status, ts reactor.Timestamp) {
			cp := make([]byte, len(data))
			copy(cp, data)
			got = append(got, cp)
		})
		p.Start()
		deadline := time.Now().Add(2 * time.Second)
		for !p.IsFinished() && time.Now().Before(deadline) {
			react.RunOnce(10)
		}
		return got
	}

	native := collect(nativePath)
	swapped := collect(swappedPath)

	if len(native) != len(swapped) {
		t.Fatalf("native delivered %d, swapped delivered %d", len(native), len(swapped))
	}
	for i := range native {
		if !bytes.Equal(native[i], swapped[i]) {
			t.Fatalf("packet %d differs between native and byte-swapped capture", i)
		}
	}
}

// rewriteSwapped byte-swaps the 32-bit fields of a native-dialect
// capture file in place, turning it into a byte-swapped-dialect file
// with bitwise-identical packet content, so native and swapped decodes
// of the "same" logical capture can be compared.
func rewriteSwapped(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	swap := func(off int) {
		v := binary.LittleEndian.Uint32(data[off : off+4])
		binary.BigEndian.PutUint32(data[off:off+4], v)
	}
	swap(0) // magic
	swap(20) // link type

	cursor := legacyFileHeaderLen
	for cursor+legacyPktHeaderLen <= len(data) {
		caplen := binary.LittleEndian.Uint32(data[cursor+8 : cursor+12])
		swap(cursor)
		swap(cursor + 4)
		swap(cursor + 8)
		swap(cursor + 12)
		cursor += legacyPktHeaderLen + int(caplen)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRewindReproducesSameSequence(t *testing.T) {
	path := buildLegacyCapture(t, magicLegacyUsNative, 4, 9002, 0)

	cfg := DefaultPcapConfig()
	cfg.Mode = ModeFlood
	react, p := newTestReplayer(t, cfg)
	if err := p.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	var first, second [][]byte
	target := &first
	p.Subscribe(9002, nil, func(ctx any, data []byte, status reactor.Status, ts reactor.Timestamp) {
		cp := make([]byte, len(data))
		copy(cp, data)
		*target = append(*target, cp)
	})

	run := func() {
		p.Start()
		deadline := time.Now().Add(2 * time.Second)
		for !p.IsFinished() && time.Now().Before(deadline) {
			react.RunOnce(10)
		}
	}
	run()

	if err := p.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	target = &second
	run()

	if len(first) != len(second) {
		t.Fatalf("first run delivered %d, second %d", len(first), len(second))
	}
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Fatalf("packet %d differs between runs", i)
		}
	}
}

func TestTimedModePacesInterCallbackDeltas(t *testing.T) {
	path := buildLegacyCapture(t, magicLegacyUsNative, 3, 9003, 20)

	cfg := DefaultPcapConfig()
	cfg.Mode = ModeTimed
	react, p := newTestReplayer(t, cfg)
	if err := p.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	var arrivals []time.Time
	p.Subscribe(9003, nil, func(ctx any, data []byte, status reactor.Status, ts reactor.Timestamp) {
		arrivals = append(arrivals, time.Now())
	})

	p.Start()
	deadline := time.Now().Add(3 * time.Second)
	for !p.IsFinished() && time.Now().Before(deadline) {
		react.RunOnce(10)
	}

	if len(arrivals) != 3 {
		t.Fatalf("expected 3 arrivals, got %d", len(arrivals))
	}
	d1 := arrivals[1].Sub(arrivals[0])
	if d1 < 10*time.Millisecond || d1 > 60*time.Millisecond {
		t.Fatalf("first inter-arrival delta out of range: %v", d1)
	}
}
