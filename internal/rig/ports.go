package rig

import (
	"context"
	"time"
)

// Connector opens and closes the radio connection.
type Connector interface {
	Connect()
	Disconnect()
}

// FrequencyController tunes the radio.
type FrequencyController interface {
	Connector
	SetFrequency(hz uint64)
	SetMode(mode Mode)
	RequestCurrentFrequencyMode()
}

// PttController keys the transmitter.
type PttController interface {
	Connector
	SetPTT(on bool)
}

// AuditLogger records executed commands.
type AuditLogger interface {
	LogAction(ctx context.Context, action, rig string, err error, latency time.Duration)
}

// Compile-time assertions that Controller implements both capability contracts.
var (
	_ FrequencyController = (*Controller)(nil)
	_ PttController       = (*Controller)(nil)
)
