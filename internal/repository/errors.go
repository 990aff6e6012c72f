package repository

import "errors"

// ErrDuplicate is returned when a unique key already exists.
var ErrDuplicate = errors.New("duplicate key")

// ErrStale is returned when an update carried an outdated version.
var ErrStale = errors.New("stale update")
