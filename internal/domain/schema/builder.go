package schema

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/renalrisk/internal/domain/encoding"
	"github.com/okian/renalrisk/internal/domain/model"
)

// Build encodes obs into the vector layout of s.
//
// Every slot field is required. Optional inputs that no slot reads are still
// validated when present. Keys unknown to the input surface are ignored.
func Build(s Schema, obs model.Observation) (model.Vector, error) {
	vec := make(model.Vector, 0, len(s.slots))
	for _, slot := range s.slots {
		v, err := resolve(slot.Field, slot.Rule, obs)
		if err != nil {
			return nil, err
		}
		vec = append(vec, v)
	}

	for _, f := range s.inputs {
		if s.bound(f.Key) {
			continue
		}
		raw, ok := obs[f.Key]
		if !ok || raw == nil {
			continue
		}
		if _, err := apply(f.Rule, raw); err != nil {
			return nil, &FieldError{Field: f.Key, Value: raw, Err: err}
		}
	}

	if len(vec) != s.Len() {
		return nil, fmt.Errorf("%w: %s vector has %d values, schema has %d slots",
			ErrSchemaMismatch, s.target.Label(), len(vec), s.Len())
	}
	return vec, nil
}

func resolve(key string, rule Rule, obs model.Observation) (float64, error) {
	raw, ok := obs[key]
	if !ok || raw == nil {
		return 0, &FieldError{Field: key, Err: ErrMissingFeature}
	}
	v, err := apply(rule, raw)
	if err != nil {
		return 0, &FieldError{Field: key, Value: raw, Err: err}
	}
	return v, nil
}

// apply converts one raw value according to rule.
func apply(rule Rule, raw any) (float64, error) {
	switch rule.Kind {
	case KindCategorical:
		label, ok := raw.(string)
		if !ok {
			return 0, fmt.Errorf("%w: expected one of %v, got %T", ErrInvalidValue, encoding.Options(rule.Category), raw)
		}
		code, err := encoding.Encode(rule.Category, label)
		if err != nil {
			return 0, err
		}
		return float64(code), nil
	case KindNumeric:
		v, err := toFloat(raw)
		if err != nil {
			return 0, err
		}
		if rule.WholeNumber && (v < 0 || v != math.Trunc(v)) {
			return 0, fmt.Errorf("%w: %v is not a non-negative integer", ErrInvalidValue, v)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unknown rule kind %q", ErrSchemaMismatch, rule.Kind)
	}
}

func toFloat(raw any) (float64, error) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case uint:
		v = float64(n)
	case uint32:
		v = float64(n)
	case uint64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, n.String())
		}
		v = f
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", ErrInvalidValue, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrInvalidValue, v)
	}
	return v, nil
}
