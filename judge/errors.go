package judge

import "errors"

var (
	// ErrFrameOutOfOrder is returned when a frame travels backwards in time;
	// the state is left untouched.
	ErrFrameOutOfOrder = errors.New("frame out of order")

	// ErrUnknownHitObject signals beatmap/state desynchronization. Fatal to
	// the session.
	ErrUnknownHitObject = errors.New("unknown hit object id")

	// ErrInvariantViolated signals a broken internal invariant; the message
	// names the offending id. Fatal to the session.
	ErrInvariantViolated = errors.New("internal invariant violated")
)
