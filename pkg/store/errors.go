package store

import "errors"

// IsNotFound reports whether err indicates a missing secret path.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsForbidden reports whether err indicates rejected credentials.
func IsForbidden(err error) bool {
	var fb ForbiddenError
	return errors.As(err, &fb)
}

// IsTransient reports whether err is a retryable network-level failure.
//
// Only TransientError values qualify. Not-found, forbidden, and every other
// per-lookup failure are deliberate outcomes and must never be retried.
func IsTransient(err error) bool {
	var tr TransientError
	return errors.As(err, &tr)
}
