package encoding

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidCategory = errors.New("invalid category")
)
