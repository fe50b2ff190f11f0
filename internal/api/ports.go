package api

import (
	"context"

	"github.com/radio-control/rigcore/internal/cat"
	"github.com/radio-control/rigcore/internal/registry"
	"github.com/radio-control/rigcore/internal/rig"
	"github.com/radio-control/rigcore/internal/telemetry"
)

// RigPort is the part of a controller the API drives.
type RigPort interface {
	rig.FrequencyController
	rig.PttController
	Name() string
}

// CatalogPort lists the rigs a backend supports.
type CatalogPort interface {
	Discover(ctx context.Context) ([]cat.RigDescriptor, error)
}

// TelemetryPort provides event subscriptions.
type TelemetryPort interface {
	Subscribe(ctx context.Context, rigName string, lastID int64) (*telemetry.Subscription, error)
}

var (
	_ RigPort       = (*rig.Controller)(nil)
	_ CatalogPort   = (*registry.Registry)(nil)
	_ TelemetryPort = (*telemetry.Hub)(nil)
)
