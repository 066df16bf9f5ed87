// Package pool
// Author: momentics <momentics@gmail.com>
//
// Packet buffer arenas for the batched receive path. A PacketArena is a
// single contiguous anonymous mapping sliced into fixed-stride, 64-byte
// aligned packet slots reused across every batch with no synchronization,
// since only the owning reactor goroutine ever touches it (see
// internal/fdutil.ThreadGuard). Allocation prefers huge pages and falls
// back to ordinary pages on failure, the way the original
// atu_reactor::PacketReceiver constructor does
// (_examples/original_source/src/PacketReceiver.cc), generalized from this
// module's buffer-pool ancestor (pool/bufferpool_linux.go).
package pool
