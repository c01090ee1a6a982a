package repository

import (
	"errors"

	"github.com/okian/renalrisk/internal/domain/model"
)

// Sentinel kinds for registry errors.
var (
	ErrModelLoad     = errors.New("model load failed")
	ErrUnknownTarget = model.ErrUnknownTarget
)
