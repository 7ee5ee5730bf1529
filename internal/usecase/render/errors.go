package render

import "errors"

// Errors returned by the orchestrator's public operations. Failures inside
// job processing are never returned to callers; they are persisted as the
// job's error message instead.
var (
	// ErrUnknownPlatform indicates the requested platform has no registered adapter
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrNoSongs indicates a bulk generation request for an empty album
	ErrNoSongs = errors.New("album has no songs")
)
