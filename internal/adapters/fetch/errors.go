package fetch

import "errors"

// Sentinel kinds for dataset fetch errors.
var (
	ErrFetch     = errors.New("fetch dataset failed")
	ErrBadStatus = errors.New("unexpected status")
	ErrTooLarge  = errors.New("payload too large")
)
