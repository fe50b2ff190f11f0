// Package telemetry fans rig controller events out to subscribers.
//
// The Hub is attached to controllers as a rig.Listener. Every event gets a
// monotonic per-rig ID and is kept in a bounded per-rig buffer, so a
// subscriber that reconnects with the last ID it saw receives what it missed.
// Publishing never blocks the controller worker: deliveries to a subscriber
// whose channel is full are dropped and counted.
package telemetry
