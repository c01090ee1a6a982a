package scoring

import (
	"context"
	"errors"

	"github.com/okian/renalrisk/internal/domain/encoding"
	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
)

// ErrScoreOutOfRange is returned when a scorer yields a value outside [0,1].
var ErrScoreOutOfRange = errors.New("score out of range")

// Error kinds reported in metrics and API responses.
const (
	KindInvalidCategory = "invalid_category"
	KindMissingFeature  = "missing_feature"
	KindInvalidValue    = "invalid_value"
	KindUnknownTarget   = "unknown_target"
	KindSchemaMismatch  = "schema_mismatch"
	KindCanceled        = "canceled"
	KindInternal        = "internal"
)

// Kind classifies a prediction error. Input errors are checked first.
func Kind(err error) string {
	switch {
	case errors.Is(err, encoding.ErrInvalidCategory):
		return KindInvalidCategory
	case errors.Is(err, schema.ErrMissingFeature):
		return KindMissingFeature
	case errors.Is(err, schema.ErrInvalidValue):
		return KindInvalidValue
	case errors.Is(err, model.ErrUnknownTarget):
		return KindUnknownTarget
	case errors.Is(err, schema.ErrSchemaMismatch):
		return KindSchemaMismatch
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// Field returns the observation field an error refers to, if any.
func Field(err error) string {
	var fe *schema.FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
