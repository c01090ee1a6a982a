package api

import (
	"errors"

	"github.com/okian/renalrisk/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = model.ErrBackpressure
	ErrNotReady     = model.ErrNotReady
)
