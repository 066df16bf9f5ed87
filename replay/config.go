// File: replay/config.go
// Author: momentics <momentics@gmail.com>

package replay

// ReplayMode selects how FileReplayer paces delivery of captured packets.
type ReplayMode int

const (
	// ModeTimed delivers each packet no earlier than its scheduled
	// wall-clock target, derived from the capture's own timestamps.
	ModeTimed ReplayMode = iota
	// ModeFlood delivers as fast as possible, yielding to the reactor
	// between batches.
	ModeFlood
	// ModeStep never auto-schedules; the caller drives one packet per
	// Step call.
	ModeStep
)

// PcapConfig extends the shared receiver configuration with replay mode
// and pacing, per atu_reactor::PcapReceiver::Config
// (_examples/original_source/include/atu_reactor/PcapReceiver.h).
type PcapConfig struct {
	BatchSize int
	Mode      ReplayMode

	// SpeedMultiplier scales the TIMED-mode pacing delta; 1.0 replays at
	// original pace, >1.0 faster, <1.0 slower.
	SpeedMultiplier float64

	// FloodBatchLimit bounds how many packets process_batch steps
	// through in one call under ModeFlood. The original hard-codes
	// 10000; this module keeps that as the default but makes it
	// tunable (spec.md Open Question).
	FloodBatchLimit int

	// DeliverTruncated, when true, would deliver capture-truncated
	// frames (caplen != len) instead of silently dropping them. Not yet
	// wired to any behavior change; reserved per spec.md Open Question.
	DeliverTruncated bool
}

// DefaultPcapConfig returns {BatchSize: 64, Mode: ModeTimed,
// SpeedMultiplier: 1.0, FloodBatchLimit: 10000}.
func DefaultPcapConfig() PcapConfig {
	return PcapConfig{
		BatchSize:       64,
		Mode:            ModeTimed,
		SpeedMultiplier: 1.0,
		FloodBatchLimit: 10000,
	}
}
