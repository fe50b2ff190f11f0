package api

import (
	"sync"
	"time"

	"github.com/radio-control/rigcore/internal/rig"
)

// Snapshot is the last reported state of a rig.
type Snapshot struct {
	Rig          string    `json:"rig"`
	ConnectedAt  time.Time `json:"connectedAt,omitzero"`
	Transmitting bool      `json:"transmitting"`
	FrequencyHz  uint64    `json:"frequencyHz,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// State records controller events into a Snapshot. Attach it with
// rig.WithListener.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

var _ rig.Listener = (*State)(nil)

// NewState creates an empty state for rigName.
func NewState(rigName string) *State {
	return &State{snap: Snapshot{Rig: rigName}, now: time.Now}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
	s.snap.UpdatedAt = s.now()
}

// RigConnected implements rig.Listener.
func (s *State) RigConnected(*rig.Controller) {
	s.update(func(snap *Snapshot) {
		snap.ConnectedAt = s.now()
		snap.LastError = ""
	})
}

// Disconnected marks the rig as no longer connected. The controller reports
// no event for a disconnect, so the API calls it when it queues one.
func (s *State) Disconnected() {
	s.update(func(snap *Snapshot) {
		snap.ConnectedAt = time.Time{}
		snap.Transmitting = false
	})
}

// RigError implements rig.Listener.
func (s *State) RigError(_ *rig.Controller, err error) {
	s.update(func(snap *Snapshot) { snap.LastError = err.Error() })
}

// PttChanged implements rig.Listener.
func (s *State) PttChanged(_ *rig.Controller, on bool) {
	s.update(func(snap *Snapshot) { snap.Transmitting = on })
}

// FreqModeChanged implements rig.Listener.
func (s *State) FreqModeChanged(_ *rig.Controller, hz uint64, mode rig.Mode) {
	s.update(func(snap *Snapshot) {
		snap.FrequencyHz = hz
		snap.Mode = mode.String()
	})
}
