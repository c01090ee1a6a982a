// Package encoding maps clinical categorical labels to the integer codes the
// pretrained models were trained on.
//
// Every category is a closed enumeration. A label outside its domain is an
// error; there is no fallback code.
package encoding

import (
	"fmt"
)

// Category names a closed enumeration of option labels.
type Category string

// Known categories.
const (
	// Flag covers every yes/no medication or condition field
	// (diuretics, urate-lowering therapy, hypertension, PPI,
	// antineoplastic agents, history of surgery).
	Flag Category = "flag"
	// AKIGrade is the KDIGO stage of the first AKI episode.
	AKIGrade Category = "aki_grade"
	// UrineProtein is the dipstick urine protein result.
	UrineProtein Category = "urine_protein"
)

// Option labels exactly as offered to clinicians.
const (
	No  = "NO"
	Yes = "Yes"

	Stage0 = "Stage 0"
	Stage1 = "Stage 1"
	Stage2 = "Stage 2"
	Stage3 = "Stage 3"

	ProteinNegative = "Negative"
	ProteinPlus1    = "+"
	ProteinPlus2    = "++"
	ProteinPlus3    = "+++"
)

// Categories returns every known category.
func Categories() []Category {
	return []Category{Flag, AKIGrade, UrineProtein}
}

// Encode returns the integer code for raw within category.
func Encode(category Category, raw string) (int, error) {
	code, ok := lookup(category, raw)
	if !ok {
		return 0, &CategoryError{Category: category, Value: raw}
	}
	return code, nil
}

// lookup is the exhaustive mapping table. Keep each switch in code order.
func lookup(category Category, raw string) (int, bool) {
	switch category {
	case Flag:
		switch raw {
		case No:
			return 0, true
		case Yes:
			return 1, true
		}
	case AKIGrade:
		switch raw {
		case Stage0:
			return 0, true
		case Stage1:
			return 1, true
		case Stage2:
			return 2, true
		case Stage3:
			return 3, true
		}
	case UrineProtein:
		switch raw {
		case ProteinNegative:
			return 0, true
		case ProteinPlus1:
			return 1, true
		case ProteinPlus2:
			return 2, true
		case ProteinPlus3:
			return 3, true
		}
	}
	return 0, false
}

// Options returns the labels of category ordered by code, or nil for an
// unknown category.
func Options(category Category) []string {
	switch category {
	case Flag:
		return []string{No, Yes}
	case AKIGrade:
		return []string{Stage0, Stage1, Stage2, Stage3}
	case UrineProtein:
		return []string{ProteinNegative, ProteinPlus1, ProteinPlus2, ProteinPlus3}
	default:
		return nil
	}
}

// Covers reports whether every label in offered decodes within category and
// every label of category is offered. The first offending label is returned.
func Covers(category Category, offered []string) (string, bool) {
	seen := make(map[string]struct{}, len(offered))
	for _, label := range offered {
		if _, ok := lookup(category, label); !ok {
			return label, false
		}
		seen[label] = struct{}{}
	}
	for _, label := range Options(category) {
		if _, ok := seen[label]; !ok {
			return label, false
		}
	}
	return "", len(offered) > 0
}

// CategoryError reports a label outside its enumeration.
type CategoryError struct {
	Category Category
	Value    string
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("%s: %q is not a valid %s value", ErrInvalidCategory, e.Value, e.Category)
}

// Unwrap lets errors.Is match ErrInvalidCategory.
func (e *CategoryError) Unwrap() error { return ErrInvalidCategory }
