// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

import "github.com/atupone/AtuReactor/api"

// SetAffinity pins current OS thread to a given logical CPU/core on supported platforms.
// On unsupported platforms returns an error.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// Pinner tracks the calling thread's own pin state and is this module's
// concrete implementation of api.Affinity. NUMA node tracking was dropped
// along with the teacher's NUMA-aware buffer pool (see pool package);
// Get always reports numaID -1.
type Pinner struct {
	cpuID int
}

// NewPinner returns a Pinner with no CPU pinned.
func NewPinner() *Pinner {
	return &Pinner{cpuID: -1}
}

// Pin pins the calling OS thread to cpuID. numaID is accepted for
// interface compatibility but otherwise unused.
func (p *Pinner) Pin(cpuID, numaID int) error {
	if err := SetAffinity(cpuID); err != nil {
		return err
	}
	p.cpuID = cpuID
	return nil
}

// Unpin restores the calling OS thread's affinity to every online CPU.
func (p *Pinner) Unpin() error {
	if err := resetAffinityPlatform(); err != nil {
		return err
	}
	p.cpuID = -1
	return nil
}

// Get returns the last CPU passed to Pin, or -1 if unpinned.
func (p *Pinner) Get() (cpuID, numaID int, err error) {
	return p.cpuID, -1, nil
}

var _ api.Affinity = (*Pinner)(nil)
