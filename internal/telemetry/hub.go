package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radio-control/rigcore/internal/config"
	"github.com/radio-control/rigcore/internal/rig"
)

// subscriberBuffer is the channel capacity of one subscription beyond the
// replay backlog.
const subscriberBuffer = 100

// Event is one controller event as seen by subscribers.
type Event struct {
	ID   int64          `json:"id"`
	Type string         `json:"type"`
	Rig  string         `json:"rig"`
	Time time.Time      `json:"ts"`
	Data map[string]any `json:"data,omitempty"`
}

// Subscription receives events until its context is cancelled or the hub
// stops, after which Events is closed.
type Subscription struct {
	ID     string
	Rig    string
	Events <-chan Event
}

type subscriber struct {
	id     string
	rig    string
	events chan Event
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.events) })
}

// Hub fans controller events out to subscribers and keeps the last events of
// each rig for replay. It implements rig.Listener, so it can be attached to
// a controller with rig.WithListener. Publishing never blocks: events are
// dropped for subscribers whose channel is full.
//
// Lock ordering: h.mu, then EventBuffer.mu.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]*subscriber
	rigIDs  map[string]*int64 // monotonic event IDs per rig
	buffers map[string]*EventBuffer
	stopped bool

	bufferSize int
	nextSub    atomic.Int64
	dropped    atomic.Int64
	logger     *zap.SugaredLogger
	now        func() time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

var _ rig.Listener = (*Hub)(nil)

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(h *Hub) { h.logger = l }
}

// NewHub creates a hub that keeps timing.EventBufferSize events per rig.
func NewHub(timing *config.TimingConfig, opts ...Option) *Hub {
	if timing == nil {
		timing = config.LoadTimingBaseline()
	}
	h := &Hub{
		subs:       make(map[string]*subscriber),
		rigIDs:     make(map[string]*int64),
		buffers:    make(map[string]*EventBuffer),
		bufferSize: timing.EventBufferSize,
		logger:     zap.NewNop().Sugar(),
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a subscriber for the events of rigName, or of every rig
// when rigName is empty. Buffered events of rigName with an ID above lastID
// are delivered first.
func (h *Hub) Subscribe(ctx context.Context, rigName string, lastID int64) (*Subscription, error) {
	// The backlog is taken under the write lock so that nothing published in
	// between is lost or delivered twice.
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, fmt.Errorf("failed to subscribe: hub stopped")
	}
	var backlog []Event
	if buf, ok := h.buffers[rigName]; ok && lastID > 0 {
		backlog = buf.GetEventsAfter(lastID)
	}
	s := &subscriber{
		id:     fmt.Sprintf("sub_%d", h.nextSub.Add(1)),
		rig:    rigName,
		events: make(chan Event, len(backlog)+subscriberBuffer),
	}
	for _, e := range backlog {
		s.events <- e
	}
	h.subs[s.id] = s
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		select {
		case <-ctx.Done():
			h.unsubscribe(s.id)
		case <-h.done:
		}
	}()

	h.logger.Debugf("Subscriber %s registered for %q (replayed %d)", s.id, rigName, len(backlog))
	return &Subscription{ID: s.id, Rig: rigName, Events: s.events}, nil
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		s.close()
	}
}

// Publish assigns the event an ID and a timestamp when missing, buffers it
// and delivers it to every matching subscriber.
func (h *Hub) Publish(event Event) {
	if event.ID == 0 {
		event.ID = h.nextEventID(event.Rig)
	}
	if event.Time.IsZero() {
		event.Time = h.now()
	}
	if event.Rig != "" {
		h.bufferFor(event.Rig)
	}

	// Delivery happens under the read lock so that unsubscribe cannot close a
	// channel mid-send. Sends never block.
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return
	}
	if buf, ok := h.buffers[event.Rig]; ok {
		buf.AddEvent(event)
	}
	for _, s := range h.subs {
		if s.rig != "" && s.rig != event.Rig {
			continue
		}
		select {
		case s.events <- event:
		default:
			h.dropped.Add(1)
			h.logger.Debugf("Dropping %s event %d for slow subscriber %s", event.Type, event.ID, s.id)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was
// not keeping up.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Buffer returns the replay buffer of rigName, or nil if it has none.
func (h *Hub) Buffer(rigName string) *EventBuffer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buffers[rigName]
}

// nextEventID returns the next monotonic event ID for a rig.
func (h *Hub) nextEventID(rigName string) int64 {
	if rigName == "" {
		rigName = "global"
	}

	h.mu.RLock()
	counter, ok := h.rigIDs[rigName]
	h.mu.RUnlock()
	if ok {
		return atomic.AddInt64(counter, 1)
	}

	h.mu.Lock()
	counter, ok = h.rigIDs[rigName]
	if !ok {
		counter = new(int64)
		h.rigIDs[rigName] = counter
	}
	h.mu.Unlock()
	return atomic.AddInt64(counter, 1)
}

// bufferFor makes sure rigName has a replay buffer. Buffers are never removed.
func (h *Hub) bufferFor(rigName string) {
	h.mu.RLock()
	_, ok := h.buffers[rigName]
	h.mu.RUnlock()
	if ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.buffers[rigName]; !ok {
		h.buffers[rigName] = NewEventBuffer(h.bufferSize)
	}
}

// Stop closes every subscription. Later events are discarded.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	close(h.done)
	for id, s := range h.subs {
		s.close()
		delete(h.subs, id)
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// publishRig publishes an event produced by controller c.
func (h *Hub) publishRig(c *rig.Controller, typ string, data map[string]any) {
	h.Publish(Event{Type: typ, Rig: c.Name(), Data: data})
}

// RigConnected implements rig.Listener.
func (h *Hub) RigConnected(c *rig.Controller) {
	h.publishRig(c, rig.EventRigConnected, nil)
}

// RigError implements rig.Listener.
func (h *Hub) RigError(c *rig.Controller, err error) {
	h.publishRig(c, rig.EventRigError, map[string]any{"error": err.Error()})
}

// PttChanged implements rig.Listener.
func (h *Hub) PttChanged(c *rig.Controller, on bool) {
	h.publishRig(c, rig.EventPttChanged, map[string]any{"on": on})
}

// FreqModeChanged implements rig.Listener.
func (h *Hub) FreqModeChanged(c *rig.Controller, hz uint64, mode rig.Mode) {
	h.publishRig(c, rig.EventFreqModeChanged, map[string]any{
		"frequencyHz": hz,
		"mode":        mode.String(),
	})
}

// EventBuffer is a bounded buffer of the most recent events of one rig.
type EventBuffer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewEventBuffer creates a buffer that keeps at most capacity events.
func NewEventBuffer(capacity int) *EventBuffer {
	return &EventBuffer{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// AddEvent appends event, evicting the oldest when full.
func (b *EventBuffer) AddEvent(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		b.events = b.events[1:]
	}
}

// GetEventsAfter returns the buffered events with an ID above lastID.
func (b *EventBuffer) GetEventsAfter(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, event := range b.events {
		if event.ID > lastID {
			result = append(result, event)
		}
	}
	return result
}

// GetCapacity returns the buffer capacity.
func (b *EventBuffer) GetCapacity() int {
	return b.capacity
}

// GetSize returns the number of buffered events.
func (b *EventBuffer) GetSize() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
