package lightgbm

import "errors"

// Sentinel kinds for model errors.
var (
	ErrParse        = errors.New("malformed model")
	ErrUnsupported  = errors.New("unsupported model")
	ErrFeatureCount = errors.New("feature count mismatch")
)
