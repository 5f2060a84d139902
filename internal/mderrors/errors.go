// Package mderrors defines the engine's error taxonomy, one sentinel
// group per concern, matching the teacher's pkg/exception layout.
package mderrors

import "errors"

// Config errors — malformed or inconsistent configuration, fatal at
// startup.
var (
	ErrConfigMissingExchange = errors.New("config: missing exchange")
	ErrConfigBadMdSize       = errors.New("config: md_size must be a power of two")
	ErrConfigBadRedundancy   = errors.New("config: redundancy must be >= 1")
	ErrConfigUnknownExchange = errors.New("config: unknown exchange")
)

// Network errors — transient socket/WS failures, recovered locally by
// reconnect with backoff.
var (
	ErrNetworkDial  = errors.New("network: dial failed")
	ErrNetworkRead  = errors.New("network: read failed")
	ErrNetworkWrite = errors.New("network: write failed")
)

// Parse errors — unexpected payload shape; logged at warn, record
// dropped, processing continues.
var (
	ErrParseShortFrame  = errors.New("parse: frame too short")
	ErrParseUnknownKind = errors.New("parse: unrecognized message kind")
)

// Shm errors — region creation or indexing failure; fatal for the
// affected worker.
var (
	ErrShmCreate = errors.New("shm: region creation failed")
	ErrShmWrite  = errors.New("shm: write failed")
)

// Capacity errors — channel overflow; counted, oldest-dropped,
// non-fatal.
var ErrCapacityOverflow = errors.New("capacity: channel overflow, oldest dropped")

// ErrCancelled is expected during shutdown and treated as success by
// callers that check errors.Is(err, ErrCancelled).
var ErrCancelled = errors.New("cancelled")
