package schema

import (
	"fmt"

	"github.com/okian/renalrisk/internal/domain/encoding"
)

// Validate checks the structural invariants of s. It runs once at startup so
// that an unmapped option can never reach a model.
func Validate(s Schema) error {
	if len(s.slots) != Length {
		return fmt.Errorf("%w: %s has %d slots, want %d", ErrSchemaMismatch, s.target.Label(), len(s.slots), Length)
	}

	for _, f := range s.inputs {
		if err := validateRule(f.Rule); err != nil {
			return fmt.Errorf("%s input %q: %w", s.target.Label(), f.Key, err)
		}
		if f.Rule.Kind != KindCategorical {
			if len(f.Options) > 0 {
				return fmt.Errorf("%w: %s numeric input %q offers options", ErrSchemaMismatch, s.target.Label(), f.Key)
			}
			continue
		}
		if label, ok := encoding.Covers(f.Rule.Category, f.Options); !ok {
			return fmt.Errorf("%w: %s input %q option %q not covered by %s",
				ErrSchemaMismatch, s.target.Label(), f.Key, label, f.Rule.Category)
		}
	}

	for i, slot := range s.slots {
		f, ok := s.Input(slot.Field)
		if !ok {
			return fmt.Errorf("%w: %s slot %d (%s) reads unknown field %q",
				ErrSchemaMismatch, s.target.Label(), i, slot.Name, slot.Field)
		}
		if f.Rule != slot.Rule {
			return fmt.Errorf("%w: %s slot %d (%s) rule differs from input %q",
				ErrSchemaMismatch, s.target.Label(), i, slot.Name, slot.Field)
		}
	}
	return nil
}

func validateRule(r Rule) error {
	switch r.Kind {
	case KindNumeric:
		if r.Category != "" {
			return fmt.Errorf("%w: numeric rule carries category %q", ErrSchemaMismatch, r.Category)
		}
	case KindCategorical:
		if encoding.Options(r.Category) == nil {
			return fmt.Errorf("%w: unknown category %q", ErrSchemaMismatch, r.Category)
		}
	default:
		return fmt.Errorf("%w: unknown rule kind %q", ErrSchemaMismatch, r.Kind)
	}
	return nil
}
