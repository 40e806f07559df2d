// ABOUTME: Common storage errors
// ABOUTME: Enables consistent error handling across document store implementations

package storage

import "errors"

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidPath is returned for empty or malformed document paths.
var ErrInvalidPath = errors.New("invalid document path")
