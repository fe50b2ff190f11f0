// Package audit writes the append-only command audit trail.
//
// Each executed rig command becomes one JSON line with the rig, action,
// parameters, outcome, normalized error code and latency. Files are rotated by
// size through lumberjack.
package audit
