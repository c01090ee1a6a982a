package model

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownTarget = errors.New("unknown prediction target")
	ErrBackpressure  = errors.New("prediction queue is full")
	ErrNotReady      = errors.New("predictor is not ready")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)
