package offline

import "errors"

var (
	// ErrOfflineUnavailable is returned for a single-entity read with no
	// cache entry and no connectivity.
	ErrOfflineUnavailable = errors.New("data unavailable offline")

	// ErrNoSession is returned when a write is attempted with no current
	// user to attribute it to.
	ErrNoSession = errors.New("no active session")

	// errUnresolvedTempID halts a drain pass when a queued update or
	// delete targets a temp id whose create has not been replayed yet.
	// FIFO enqueue order makes this unreachable in normal operation.
	errUnresolvedTempID = errors.New("queued operation targets an unsynced temporary id")
)
