package session

import "errors"

var (
	// ErrNotFound covers both absent sessions and sessions owned by a
	// different principal; the two are indistinguishable to the caller.
	ErrNotFound = errors.New("session not found")

	// ErrNotRunning tells the caller to open the session first. File and
	// terminal operations never start a container implicitly.
	ErrNotRunning = errors.New("session not running")

	// ErrDeleted marks a terminal session; reopen attempts are rejected.
	ErrDeleted = errors.New("session deleted")

	// ErrConflict means another lifecycle transition for the same
	// session is in flight; the caller should retry.
	ErrConflict = errors.New("session transition conflict")

	// ErrProvisionFailed marks a create that failed mid-sequence. The
	// session is retained in a distinguishable state so a retry does not
	// orphan the volume silently.
	ErrProvisionFailed = errors.New("session provisioning failed")
)
