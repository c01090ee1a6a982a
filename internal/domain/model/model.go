// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Target identifies which outcome a prediction estimates.
type Target string

// Supported prediction targets. Each is bound 1:1 to a schema and a model.
const (
	TargetAKI Target = "aki" // acute kidney injury
	TargetAKD Target = "akd" // acute kidney disease
)

// Targets lists every supported target in a stable order.
func Targets() []Target {
	return []Target{TargetAKI, TargetAKD}
}

// ParseTarget maps a user supplied name (case-insensitive) to a Target.
func ParseTarget(name string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(name))) {
	case TargetAKI:
		return TargetAKI, nil
	case TargetAKD:
		return TargetAKD, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
}

// Label returns the upper-case clinical abbreviation, e.g. "AKI".
func (t Target) Label() string {
	return strings.ToUpper(string(t))
}

// Observation maps input field keys to raw clinician-entered values.
// Values are numbers (float64, int, json.Number, ...) or option labels.
// It is created per request and never persisted.
type Observation map[string]any

// Vector is an encoded feature vector in schema order.
type Vector []float64

// Result is the outcome of a single prediction.
type Result struct {
	Target      Target
	Probability float64 // always within [0,1]
	Display     string  // probability formatted to two decimals
}

// NewResult wraps a probability with its display form.
func NewResult(target Target, probability float64) Result {
	return Result{
		Target:      target,
		Probability: probability,
		Display:     FormatProbability(probability),
	}
}

// FormatProbability renders p with two decimals, e.g. 0.2 -> "0.20".
func FormatProbability(p float64) string {
	return fmt.Sprintf("%.2f", p)
}
