package feedsync

import "errors"

var (
	// ErrEmptyFeed rejects an empty fetched feed. An empty vendor response
	// is far more likely an upstream failure than an intentional catalog
	// wipe, so it must never become "all rows removed".
	ErrEmptyFeed = errors.New("feedsync: fetched feed is empty")
	// ErrMalformedFeed rejects a feed that does not parse as the expected
	// tabular shape, before any diffing occurs.
	ErrMalformedFeed = errors.New("feedsync: feed is not a valid tabular feed")

	// Fetch error taxonomy. ErrConnection is retryable with bounded
	// backoff; ErrAuth is not and requires a credential fix.
	ErrConnection   = errors.New("feedsync: vendor endpoint unreachable")
	ErrAuth         = errors.New("feedsync: vendor endpoint rejected credentials")
	ErrFeedNotFound = errors.New("feedsync: no feed at configured location")

	// ErrAlreadyRunning rejects a trigger while a run is in progress for
	// the same (vendor, scope) pair. Triggers are never queued: queuing
	// would mask a stuck run instead of surfacing it.
	ErrAlreadyRunning = errors.New("feedsync: sync already running for this vendor and scope")
	// ErrStuckRun rejects a trigger while the active run has exceeded its
	// maximum duration. A stuck run never self-heals: it blocks the pair
	// until an operator resets it.
	ErrStuckRun = errors.New("feedsync: run exceeded maximum duration, reset required")
	// ErrRunNotResetable is returned by Reset when the active run has not
	// exceeded its maximum duration.
	ErrRunNotResetable = errors.New("feedsync: run is not stuck")
	// ErrNoActiveRun is returned by Reset when nothing is in progress
	ErrNoActiveRun = errors.New("feedsync: no run in progress")
	// ErrInvalidTransition guards the run state machine
	ErrInvalidTransition = errors.New("feedsync: invalid run state transition")
)
