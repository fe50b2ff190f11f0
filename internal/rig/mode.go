package rig

import (
	"fmt"
	"strings"

	"github.com/radio-control/rigcore/internal/cat"
)

// Mode is the canonical operating mode.
type Mode int

// Modes. ModeUnknown is reported for backend modes with no mapping and is
// rejected by SetMode.
const (
	ModeUnknown Mode = iota
	ModeUSB
	ModeLSB
	ModeDIGU
	ModeDIGL
	ModeFM
	ModeDIGFM
	ModeAM
)

var modeNames = [...]string{
	ModeUnknown: "UNKNOWN",
	ModeUSB:     "USB",
	ModeLSB:     "LSB",
	ModeDIGU:    "DIGU",
	ModeDIGL:    "DIGL",
	ModeFM:      "FM",
	ModeDIGFM:   "DIGFM",
	ModeAM:      "AM",
}

var modeCodes = map[Mode]cat.ModeCode{
	ModeUSB:   cat.ModeUSB,
	ModeLSB:   cat.ModeLSB,
	ModeDIGU:  cat.ModePKTUSB,
	ModeDIGL:  cat.ModePKTLSB,
	ModeFM:    cat.ModeFM,
	ModeDIGFM: cat.ModePKTFM,
	ModeAM:    cat.ModeAM,
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Modes returns the modes accepted by SetMode.
func Modes() []Mode {
	modes := make([]Mode, 0, len(modeNames)-1)
	for m := range modeNames {
		if Mode(m) != ModeUnknown {
			modes = append(modes, Mode(m))
		}
	}
	return modes
}

// ParseMode parses a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if Mode(m) != ModeUnknown && strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return ModeUnknown, fmt.Errorf("%q: %w", s, ErrUnknownMode)
}

// catCode maps m to the backend mode code.
func (m Mode) catCode() (cat.ModeCode, bool) {
	code, ok := modeCodes[m]
	return code, ok
}

// modeFromCAT maps a backend mode code; unmapped codes are ModeUnknown.
func modeFromCAT(code cat.ModeCode) Mode {
	for m, c := range modeCodes {
		if c == code {
			return m
		}
	}
	return ModeUnknown
}
