package render

import "errors"

// Sentinel kinds for rendering errors.
var (
	ErrRender = errors.New("render chart failed")
)
