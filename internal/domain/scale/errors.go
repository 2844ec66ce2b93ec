package scale

import "errors"

// Sentinel error kinds for this package.
var (
	ErrEmptyDataset     = errors.New("empty dataset")
	ErrDegenerateDomain = errors.New("degenerate domain")
)
