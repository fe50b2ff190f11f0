// Package registry holds the catalog of rig models a CAT backend supports.
//
// The catalog is built once, on first use, and is read-only afterwards.
package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/radio-control/rigcore/internal/cat"
)

// ErrRigNotFound is returned by Lookup when no model has the requested name.
var ErrRigNotFound = errors.New("rig not found")

// Registry is the sorted rig catalog of one backend.
type Registry struct {
	backend cat.Backend
	logger  *zap.SugaredLogger

	mu    sync.Mutex
	rigs  []cat.RigDescriptor
	built bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty registry for backend. Nothing is enumerated until the
// first Discover or Lookup.
func New(backend cat.Backend, opts ...Option) *Registry {
	r := &Registry{
		backend: backend,
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discover returns the catalog sorted by manufacturer, then model, then ID.
// The backend is enumerated at most once; concurrent first callers block until
// that enumeration finishes. A failed enumeration is not cached.
func (r *Registry) Discover(ctx context.Context) ([]cat.RigDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.built {
		rigs, err := r.backend.Discover(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover rigs: %w", err)
		}
		rigs = slices.Clone(rigs)
		slices.SortStableFunc(rigs, Compare)
		r.rigs = rigs
		r.built = true
		r.logger.Infof("Registered %d rig models", len(rigs))
	}
	return slices.Clone(r.rigs), nil
}

// Lookup finds a model by its "<manufacturer> <model>" name.
func (r *Registry) Lookup(ctx context.Context, name string) (cat.RigDescriptor, error) {
	rigs, err := r.Discover(ctx)
	if err != nil {
		return cat.RigDescriptor{}, err
	}
	for _, rig := range rigs {
		if rig.Name() == name {
			return rig, nil
		}
	}
	return cat.RigDescriptor{}, fmt.Errorf("%q: %w", name, ErrRigNotFound)
}

// Compare orders descriptors by manufacturer and model, both compared without
// regard to case, then by ascending ID.
func Compare(a, b cat.RigDescriptor) int {
	if c := cmp.Compare(strings.ToLower(a.Manufacturer), strings.ToLower(b.Manufacturer)); c != 0 {
		return c
	}
	if c := cmp.Compare(strings.ToLower(a.Model), strings.ToLower(b.Model)); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Less reports whether a sorts before b.
func Less(a, b cat.RigDescriptor) bool {
	return Compare(a, b) < 0
}

var (
	sharedMu sync.Mutex
	shared   = map[cat.Backend]*Registry{}
)

// Shared returns the process-wide registry for backend, creating it on first
// use. A backend value that cannot be used as a map key, such as a struct
// holding a func or slice, gets a fresh unshared registry.
func Shared(backend cat.Backend, opts ...Option) *Registry {
	if backend == nil || !reflect.ValueOf(backend).Comparable() {
		return New(backend, opts...)
	}
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if r, ok := shared[backend]; ok {
		return r
	}
	r := New(backend, opts...)
	shared[backend] = r
	return r
}
