// Package auth verifies bearer tokens for the rig control API.
//
// Tokens are JWTs signed with HS256 or RS256 whose "scopes" claim grants
// read (registry and state), control (connect, tune, key) and telemetry
// (event stream) access.
package auth
