package runlog

import "errors"

var (
	// ErrMissingRun is returned when no record is persisted under a key.
	ErrMissingRun = errors.New("run record not found")

	// ErrMalformedRecord is returned when a persisted record breaks the
	// length-equality invariants of its series.
	ErrMalformedRecord = errors.New("malformed run record")

	// ErrRecorderClosed is returned by mutations after Save.
	ErrRecorderClosed = errors.New("recorder already saved")

	// ErrInvalidKey is returned for keys that cannot name a stored record.
	ErrInvalidKey = errors.New("invalid run key")
)
