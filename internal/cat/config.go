package cat

import (
	"fmt"
	"strconv"
	"strings"
)

// PttType selects how the backend keys the transmitter.
type PttType int

// PTT signalling modes.
const (
	PttCAT PttType = iota
	PttRTS
	PttDTR
	PttNone
)

var pttTypeNames = map[PttType]string{
	PttCAT:  "CAT",
	PttRTS:  "RTS",
	PttDTR:  "DTR",
	PttNone: "NONE",
}

func (p PttType) String() string {
	if name, ok := pttTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PttType(%d)", int(p))
}

// confValue is the ptt_type value hamlib accepts. Its names are matched case
// sensitively and "none" is spelled None.
func (p PttType) confValue() string {
	if p == PttNone {
		return "None"
	}
	return p.String()
}

// ParsePttType parses CAT, RTS, DTR or NONE (case-insensitive). An empty
// string selects CAT.
func ParsePttType(s string) (PttType, error) {
	if s == "" {
		return PttCAT, nil
	}
	for p, name := range pttTypeNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return PttCAT, fmt.Errorf("unknown PTT type %q (want CAT, RTS, DTR or NONE)", s)
}

// Configuration token names, as understood by hamlib.
const (
	TokenCIVAddress = "civaddr"
	TokenRigPath    = "rig_pathname"
	TokenPttPath    = "ptt_pathname"
	TokenSerialRate = "serial_speed"
	TokenPttType    = "ptt_type"
)

// ConfToken is one backend configuration setting.
type ConfToken struct {
	Name  string
	Value string
}

func (t ConfToken) String() string {
	return t.Name + "=" + t.Value
}

// OpenConfig is the per-connection configuration passed to Backend.Open.
type OpenConfig struct {
	// CIVAddress is the rendered addressing token, empty when the rig's
	// manufacturer does not use one.
	CIVAddress  string
	PortPath    string
	BaudRate    int // 0 keeps the backend default
	PttType     PttType
	PttPortPath string
}

// Tokens renders cfg as configuration tokens in the order they must be
// applied.
func (c OpenConfig) Tokens() []ConfToken {
	var tokens []ConfToken
	if c.CIVAddress != "" {
		tokens = append(tokens, ConfToken{Name: TokenCIVAddress, Value: c.CIVAddress})
	}
	tokens = append(tokens, ConfToken{Name: TokenRigPath, Value: c.PortPath})
	if c.PttPortPath != "" {
		tokens = append(tokens, ConfToken{Name: TokenPttPath, Value: c.PttPortPath})
	}
	if c.BaudRate > 0 {
		tokens = append(tokens, ConfToken{Name: TokenSerialRate, Value: strconv.Itoa(c.BaudRate)})
	}
	if c.PttType != PttCAT {
		tokens = append(tokens, ConfToken{Name: TokenPttType, Value: c.PttType.confValue()})
	}
	return tokens
}
