// Package config loads the rigcore configuration.
//
// Values are layered: built-in defaults, then the YAML file, then RIGCORE_*
// environment variables. The merged result is validated before use. The
// configuration is read-only; nothing in rigcore writes it back.
package config
