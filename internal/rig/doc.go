// Package rig implements the rig-control core.
//
// A Controller owns one radio connection. Every public operation is turned
// into a Command and appended to a FIFO queue drained by a single worker
// goroutine, so the CAT handle is only ever touched from that goroutine.
// Operations return immediately; outcomes are delivered to a Listener from
// the worker. Only Close blocks, until the final disconnect has run.
//
// Frequency and mode changes apply a bounded VFO fallback: the resolved VFO
// is tried first, then the current-VFO selector once. Changes requested while
// transmitting are bracketed by PTT-off and PTT-on.
package rig
