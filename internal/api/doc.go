// Package api serves the HTTP control surface of one rig controller.
//
// Control endpoints queue a command on the controller and answer 202
// Accepted; outcomes arrive on the Server-Sent Events stream at
// /api/v1/telemetry, which resumes from the Last-Event-ID header.
package api
