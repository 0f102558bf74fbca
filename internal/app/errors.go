package engine

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNotStarted = errors.New("engine not started")
	ErrNoHistory  = errors.New("momentum history is empty")
)
