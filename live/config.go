// File: live/config.go
// Author: momentics <momentics@gmail.com>

package live

// ReceiverConfig bounds the number of subscribed ports, the batch size of
// a single recvmmsg call, and the per-datagram buffer capacity. Mirrors
// atu_reactor::ReceiverConfig
// (_examples/original_source/include/atu_reactor/PacketReceiver.h).
type ReceiverConfig struct {
	MaxFDs     int
	BatchSize  int
	BufferSize int
}

// DefaultReceiverConfig returns {128, 64, 2048}, the values named in spec.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{MaxFDs: 128, BatchSize: 64, BufferSize: 2048}
}
