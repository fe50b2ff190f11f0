// Package cat defines the CAT backend contract used by the rig control core.
//
// A Backend discovers the rig models it can drive and opens a Handle for one
// physical radio. Every Handle method talks to the device, so callers must
// serialize access to a Handle themselves; the rig package does this with a
// single worker goroutine per controller.
//
// Backends report failures with the sentinel errors in this package, usually
// wrapped in a StatusError carrying the backend status code.
package cat
