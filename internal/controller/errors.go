package controller

import "errors"

var (
	// ErrBusy means another ask holds the single-flight guard. Callers
	// retry; nothing queues.
	ErrBusy = errors.New("another request is already being processed")

	// ErrSessionNotFound means the caller named a session the store does
	// not know.
	ErrSessionNotFound = errors.New("unknown session id")

	// ErrChallengeBlocked means a verification wall survived the full
	// bypass ladder. Recoverable by retry or operator intervention.
	ErrChallengeBlocked = errors.New("verification challenge could not be cleared")

	// ErrLoginRequired means the target account is signed out; someone has
	// to log in through a visible browser.
	ErrLoginRequired = errors.New("target account is not logged in")
)
