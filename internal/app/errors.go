package service

import "errors"

// ErrNotReady is returned when the chart is requested before a successful load.
var ErrNotReady = errors.New("chart not ready")
