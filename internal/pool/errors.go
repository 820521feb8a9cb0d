package pool

import "errors"

var (
	// ErrPoolNotFound is returned when a pool id does not resolve.
	ErrPoolNotFound = errors.New("browser pool not found")
	// ErrPoolExists is returned when creating a pool with an id already
	// in use.
	ErrPoolExists = errors.New("browser pool already exists")
	// ErrPoolCapacityReached is returned when every browser in the pool
	// is at its session limit and no more browsers may be launched.
	ErrPoolCapacityReached = errors.New("browser pool capacity reached")
	// ErrBrowserNotFound is returned when a browser id does not resolve
	// within its pool.
	ErrBrowserNotFound = errors.New("browser not found")
	// ErrSessionNotFound is returned when a page session id does not
	// resolve.
	ErrSessionNotFound = errors.New("page session not found")
	// ErrBrowserLaunch wraps engine launch failures.
	ErrBrowserLaunch = errors.New("browser launch failed")
	// ErrPoolClosed is returned when operating on a closed pool.
	ErrPoolClosed = errors.New("browser pool is closed")
)
