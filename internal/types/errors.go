package types

import (
	"context"
	"errors"
	"net"
)

// Sentinel error classes. Commands match on these with errors.Is to pick exit
// codes and user-facing messages; the worker uses them to decide whether an
// outbox row is worth retrying.
var (
	// ErrValidation marks bad user input, reported before any side effect.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing issue, user, or label.
	ErrNotFound = errors.New("not found")

	// ErrAuth marks a rejected credential. Fatal to the calling command.
	ErrAuth = errors.New("authentication failed")

	// ErrOffline marks a transient network failure. Reads degrade to the
	// cache; queued writes are retried by future worker runs.
	ErrOffline = errors.New("offline")

	// ErrRemoteRejected marks input the Remote refused despite local
	// validation. The outbox row keeps the error and is retried later.
	ErrRemoteRejected = errors.New("remote rejected")

	// ErrStorage marks a failure to read or write the cache database.
	ErrStorage = errors.New("storage unavailable")
)

// IsTransient reports whether err should leave its outbox row queued for a
// future retry rather than being treated as a hard failure.
func IsTransient(err error) bool {
	if errors.Is(err, ErrOffline) || errors.Is(err, ErrRemoteRejected) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsNetwork reports whether err is a connectivity failure, as opposed to the
// Remote answering with an application error.
func IsNetwork(err error) bool {
	if errors.Is(err, ErrOffline) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
