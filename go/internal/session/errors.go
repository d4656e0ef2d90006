package session

import "errors"

var (
	// ErrNoCredential is returned by Connect when the credential store holds
	// no token. No connection attempt is made.
	ErrNoCredential = errors.New("no credential available")

	// ErrInvalidArgument rejects an action before any side effect takes place.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoSession is returned by actions that require an active session.
	ErrNoSession = errors.New("no active session")
)
