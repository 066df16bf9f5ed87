// Package live
// Author: momentics <momentics@gmail.com>
//
// Batched UDP ingestion from live kernel sockets: dual-stack subscribe,
// vectorized recvmmsg receive into a shared packet arena, and kernel
// nanosecond timestamp extraction from ancillary control messages. Built
// from the teacher's buffer-pool ancestry (pool.PacketArena) and the
// reactor's UDPSource contract, implementing
// _examples/original_source/include/atu_reactor/UDPReceiver.h /
// src/UDPReceiver.cc in Go.
package live
