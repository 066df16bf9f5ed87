//go:build linux

// File: live/receiver_test.go
// Author: momentics <momentics@gmail.com>

package live

import (
	"bytes"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/atupone/AtuReactor/reactor"
)

func newTestReceiver(t *testing.T, cfg ReceiverConfig) (*reactor.Reactor, *Receiver) {
	t.Helper()
	react, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	t.Cleanup(func() { react.Close() })

	recv, err := NewReceiver(react, cfg)
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	t.Cleanup(func() { recv.Close() })
	return react, recv
}

func pollUntil(t *testing.T, react *reactor.Reactor, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := react.RunOnce(20); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if done() {
			return
		}
	}
	t.Fatal("timed out waiting for expected callback invocations")
}

func TestSubscribeLargeDatagram(t *testing.T) {
	react, recv := newTestReceiver(t, DefaultReceiverConfig())

	type event struct {
		data   []byte
		status reactor.Status
	}
	var got []event

	port, err := recv.Subscribe(0, "ctx", func(ctx any, data []byte, status reactor.Status, ts reactor.Timestamp) {
		cp := make([]byte, len(data))
		copy(cp, data)
		got = append(got, event{data: cp, status: status})
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	payload := bytes.Repeat([]byte("x"), 1000)
	conn, err := net.Dial("udp", "127.0.0.1:"+strconv.Itoa(int(port)))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pollUntil(t, react, func() bool { return len(got) >= 1 })

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 invocation, got %d", len(got))
	}
	if got[0].status != reactor.StatusOK {
		t.Fatalf("expected StatusOK, got %d", got[0].status)
	}
	if !bytes.Equal(got[0].data, payload) {
		t.Fatalf("payload mismatch: got %d bytes, want %d", len(got[0].data), len(payload))
	}
}

func TestSubscribeTruncation(t *testing.T) {
	cfg := DefaultReceiverConfig()
	cfg.BufferSize = 100
	react, recv := newTestReceiver(t, cfg)

	var gotLen int
	var gotStatus reactor.Status
	port, err := recv.Subscribe(0, nil, func(ctx any, data []byte, status reactor.Status, ts reactor.Timestamp) {
		gotLen = len(data)
		gotStatus = status
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	conn, err := net.Dial("udp", "127.0.0.1:"+strconv.Itoa(int(port)))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write(bytes.Repeat([]byte("y"), 150)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pollUntil(t, react, func() bool { return gotLen != 0 })

	if gotLen != 100 {
		t.Fatalf("expected truncated length 100, got %d", gotLen)
	}
	if gotStatus&reactor.StatusTruncated == 0 {
		t.Fatalf("expected StatusTruncated bit set, got %d", gotStatus)
	}
}

func TestDuplicateSubscribeReturnsAddrInUse(t *testing.T) {
	_, recv := newTestReceiver(t, DefaultReceiverConfig())

	port, err := recv.Subscribe(0, nil, func(any, []byte, reactor.Status, reactor.Timestamp) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := recv.Subscribe(port, nil, func(any, []byte, reactor.Status, reactor.Timestamp) {}); err == nil {
		t.Fatal("expected ADDR_IN_USE on duplicate subscribe")
	}
}

func TestUnsubscribeTwiceReturnsNotFound(t *testing.T) {
	_, recv := newTestReceiver(t, DefaultReceiverConfig())

	port, err := recv.Subscribe(0, nil, func(any, []byte, reactor.Status, reactor.Timestamp) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := recv.Unsubscribe(port); err != nil {
		t.Fatalf("first Unsubscribe: %v", err)
	}
	if err := recv.Unsubscribe(port); err == nil {
		t.Fatal("expected NOT_FOUND on second unsubscribe")
	}
}

func TestSubscribeNilHandlerIsInvalidArg(t *testing.T) {
	_, recv := newTestReceiver(t, DefaultReceiverConfig())
	if _, err := recv.Subscribe(0, nil, nil); err == nil {
		t.Fatal("expected INVALID_ARG for nil handler")
	}
}

func TestSetConfigLowersMaxFDsLive(t *testing.T) {
	cfg := DefaultReceiverConfig()
	cfg.MaxFDs = 2
	_, recv := newTestReceiver(t, cfg)

	if _, err := recv.Subscribe(0, nil, func(any, []byte, reactor.Status, reactor.Timestamp) {}); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}

	if err := recv.Control().SetConfig(map[string]any{"max_fds": 1}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	if _, err := recv.Subscribe(0, nil, func(any, []byte, reactor.Status, reactor.Timestamp) {}); err == nil {
		t.Fatal("expected RESOURCE_EXHAUSTED after lowering max_fds to 1 with 1 already subscribed")
	}
}

