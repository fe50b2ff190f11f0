package cat

import (
	"context"
	"fmt"
)

// ModelID is the backend-internal identifier of a rig model.
type ModelID int

// RigDescriptor describes one rig model known to a backend.
type RigDescriptor struct {
	Manufacturer string  `json:"manufacturer" yaml:"manufacturer"`
	Model        string  `json:"model" yaml:"model"`
	ID           ModelID `json:"id" yaml:"id"`
}

// Name returns the display name "<manufacturer> <model>" used for lookups.
func (d RigDescriptor) Name() string {
	return fmt.Sprintf("%s %s", d.Manufacturer, d.Model)
}

// VFO selects the oscillator a device call applies to.
type VFO string

// VFO selectors. VFOCurrent asks the backend to use whatever VFO is active.
const (
	VFOCurrent VFO = "currVFO"
	VFOA       VFO = "VFOA"
	VFOB       VFO = "VFOB"
	VFOC       VFO = "VFOC"
	VFOMain    VFO = "Main"
	VFOSub     VFO = "Sub"
	VFOMem     VFO = "MEM"
)

// ModeCode is a backend mode token.
type ModeCode string

// Mode tokens understood by hamlib compatible backends.
const (
	ModeNone   ModeCode = ""
	ModeUSB    ModeCode = "USB"
	ModeLSB    ModeCode = "LSB"
	ModeCW     ModeCode = "CW"
	ModeCWR    ModeCode = "CWR"
	ModeRTTY   ModeCode = "RTTY"
	ModeAM     ModeCode = "AM"
	ModeFM     ModeCode = "FM"
	ModeWFM    ModeCode = "WFM"
	ModePKTUSB ModeCode = "PKTUSB"
	ModePKTLSB ModeCode = "PKTLSB"
	ModePKTFM  ModeCode = "PKTFM"
)

// Passband is the filter width argument of SetMode, in Hz.
type Passband int

const (
	// PassbandNoChange leaves the current filter width untouched.
	PassbandNoChange Passband = -1
	// PassbandNormal selects the backend's default width for the mode.
	PassbandNormal Passband = 0
)

//go:generate mockgen -destination=mocks/mock_cat.go -package=mocks -source=cat.go Backend,Handle

// Backend is the pluggable device I/O layer.
type Backend interface {
	// Discover lists every rig model the backend can drive.
	Discover(ctx context.Context) ([]RigDescriptor, error)

	// Open initializes and opens the device described by rig. On failure the
	// backend releases anything it allocated before returning.
	Open(ctx context.Context, rig RigDescriptor, cfg OpenConfig) (Handle, error)
}

// Handle is an open connection to one radio.
type Handle interface {
	// Close closes the device and releases the backend resources.
	Close() error

	// VFO returns the active VFO.
	VFO(ctx context.Context) (VFO, error)

	// VFOList returns the VFOs the rig advertises.
	VFOList(ctx context.Context) ([]VFO, error)

	// Frequency returns the dial frequency of vfo in Hz.
	Frequency(ctx context.Context, vfo VFO) (uint64, error)

	// SetFrequency tunes vfo to hz.
	SetFrequency(ctx context.Context, vfo VFO, hz uint64) error

	// Mode returns the mode and passband of vfo.
	Mode(ctx context.Context, vfo VFO) (ModeCode, Passband, error)

	// SetMode changes the mode of vfo.
	SetMode(ctx context.Context, vfo VFO, mode ModeCode, passband Passband) error

	// PTT returns the transmit state of vfo.
	PTT(ctx context.Context, vfo VFO) (bool, error)

	// SetPTT keys or unkeys the transmitter.
	SetPTT(ctx context.Context, vfo VFO, on bool) error
}
