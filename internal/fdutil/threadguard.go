// File: internal/fdutil/threadguard.go
// Author: momentics <momentics@gmail.com>
//
// Enforces the thread-hostile contract shared by reactor.Reactor, live.Receiver,
// and replay.Replayer: every public method and every readiness-triggered handler
// must run on the goroutine that constructed the owner. The original C++ captures
// std::this_thread::get_id() and asserts on it in debug builds only; Go has no
// cheap OS-thread identity for goroutines, so ThreadGuard instead captures the
// owning goroutine id via runtime.Stack, and it asserts unconditionally rather
// than only in debug builds since Go has no separate debug build mode.
package fdutil

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
)

// ThreadGuard captures a goroutine identity at construction and panics if a
// later call arrives from a different goroutine.
type ThreadGuard struct {
	ownerGoID int64
}

// NewThreadGuard captures the calling goroutine as the owner.
func NewThreadGuard() ThreadGuard {
	return ThreadGuard{ownerGoID: currentGoID()}
}

// Check panics if called from a goroutine other than the owner.
func (g ThreadGuard) Check(what string) {
	if id := currentGoID(); id != g.ownerGoID {
		panic(fmt.Sprintf("%s accessed from wrong goroutine: owner=%d caller=%d", what, g.ownerGoID, id))
	}
}

// currentGoID extracts the numeric goroutine id from the runtime stack trace
// header ("goroutine 123 [running]:"). It is used only for the ownership
// assertion above, which runs on every guarded call, including once per
// packet in replay.Replayer.Step.
func currentGoID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return -1
	}
	b = b[len(prefix):]
	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(b[:end]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
