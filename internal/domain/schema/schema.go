// Package schema binds each prediction target to the ordered feature slots its
// model was trained on and builds encoded vectors from observations.
//
// Slot order and count are load-bearing: the pretrained models index features
// by position, so a reordered or resized schema silently corrupts every score.
package schema

import (
	"fmt"

	"github.com/okian/renalrisk/internal/domain/encoding"
	"github.com/okian/renalrisk/internal/domain/model"
)

// Length is the number of slots in every schema.
const Length = 10

// Kind separates numeric pass-through from categorical encoding.
type Kind string

// Rule kinds.
const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Rule describes how a raw value becomes a feature value.
type Rule struct {
	Kind     Kind
	Category encoding.Category // set for KindCategorical
	// WholeNumber restricts numeric values to non-negative integers.
	WholeNumber bool
}

// Numeric passes any finite real through unchanged.
func Numeric() Rule { return Rule{Kind: KindNumeric} }

// WholeNumber accepts non-negative integers only.
func WholeNumber() Rule { return Rule{Kind: KindNumeric, WholeNumber: true} }

// Categorical encodes through the given enumeration.
func Categorical(category encoding.Category) Rule {
	return Rule{Kind: KindCategorical, Category: category}
}

// Field is one input offered to clinicians.
type Field struct {
	Key     string
	Label   string
	Unit    string
	Rule    Rule
	Options []string // offered labels, categorical fields only
}

// Slot is one position of the encoded vector.
type Slot struct {
	Name  string
	Field string
	Rule  Rule
}

// Schema is the immutable input surface and slot layout of one target.
type Schema struct {
	target model.Target
	inputs []Field
	slots  []Slot
}

// Target returns the target this schema is bound to.
func (s Schema) Target() model.Target { return s.target }

// Len returns the number of slots.
func (s Schema) Len() int { return len(s.slots) }

// Slots returns a copy of the slots in vector order.
func (s Schema) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Inputs returns a copy of the input surface in form order.
func (s Schema) Inputs() []Field {
	out := make([]Field, len(s.inputs))
	for i, f := range s.inputs {
		out[i] = f
		out[i].Options = append([]string(nil), f.Options...)
	}
	return out
}

// Input looks up an input field by key.
func (s Schema) Input(key string) (Field, bool) {
	for _, f := range s.inputs {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// bound reports whether any slot reads key.
func (s Schema) bound(key string) bool {
	for _, slot := range s.slots {
		if slot.Field == key {
			return true
		}
	}
	return false
}

// For returns the schema bound to target.
func For(target model.Target) (Schema, error) {
	switch target {
	case model.TargetAKI:
		return AKI(), nil
	case model.TargetAKD:
		return AKD(), nil
	default:
		return Schema{}, fmt.Errorf("%w: %q", model.ErrUnknownTarget, target)
	}
}

// All returns every schema in target order.
func All() []Schema {
	return []Schema{AKI(), AKD()}
}

// Field keys shared by the JSON API, the CLI and the form layer.
const (
	KeyDiuretics            = "diuretics"
	KeySerumSodium          = "serum_sodium"
	KeyUrateLoweringTherapy = "urate_lowering_therapy"
	KeyHypertension         = "hypertension"
	KeyUrineProtein         = "urine_protein"
	KeyALP                  = "alp"
	KeyUricAcid             = "uric_acid"
	KeyBloodGlucose         = "blood_glucose"
	KeyPPI                  = "ppi"
	KeyTotalProtein         = "total_protein"

	KeyAge                  = "age"
	KeyAKIGrade             = "aki_grade"
	KeyRBC                  = "rbc"
	KeySerumCalcium         = "serum_calcium"
	KeyUrineSpecificGravity = "urine_specific_gravity"
	KeyAntineoplasticAgents = "antineoplastic_agents"
	KeyCystatinC            = "cystatin_c"
	KeyHistoryOfSurgery     = "history_of_surgery"
	KeyHemoglobin           = "hemoglobin"
)

func flagField(key, label string) Field {
	return Field{Key: key, Label: label, Rule: Categorical(encoding.Flag), Options: []string{"NO", "Yes"}}
}

func numericField(key, label, unit string) Field {
	return Field{Key: key, Label: label, Unit: unit, Rule: Numeric()}
}

// AKI returns the acute kidney injury schema.
//
// The PPI slot appears twice (positions 6 and 8). The model was trained on
// that layout; removing the duplicate requires retraining.
func AKI() Schema {
	return Schema{
		target: model.TargetAKI,
		inputs: []Field{
			flagField(KeyDiuretics, "Diuretics"),
			numericField(KeySerumSodium, "Serum sodium", "mmol/L"),
			flagField(KeyUrateLoweringTherapy, "Urate-lowering therapy"),
			flagField(KeyHypertension, "Hypertension"),
			{
				Key:     KeyUrineProtein,
				Label:   "Urine protein",
				Rule:    Categorical(encoding.UrineProtein),
				Options: []string{"Negative", "+", "++", "+++"},
			},
			numericField(KeyALP, "ALP", "U/L"),
			numericField(KeyUricAcid, "Uric acid", "umol/L"),
			numericField(KeyBloodGlucose, "Blood glucose", "mmol/L"),
			flagField(KeyPPI, "PPI"),
			numericField(KeyTotalProtein, "Total protein", "g/L"),
		},
		slots: []Slot{
			{Name: "diuretics", Field: KeyDiuretics, Rule: Categorical(encoding.Flag)},
			{Name: "hypertension", Field: KeyHypertension, Rule: Categorical(encoding.Flag)},
			{Name: "serum_sodium", Field: KeySerumSodium, Rule: Numeric()},
			{Name: "urate_lowering_therapy", Field: KeyUrateLoweringTherapy, Rule: Categorical(encoding.Flag)},
			{Name: "alp", Field: KeyALP, Rule: Numeric()},
			{Name: "uric_acid", Field: KeyUricAcid, Rule: Numeric()},
			{Name: "ppi", Field: KeyPPI, Rule: Categorical(encoding.Flag)},
			{Name: "blood_glucose", Field: KeyBloodGlucose, Rule: Numeric()},
			{Name: "ppi_repeat", Field: KeyPPI, Rule: Categorical(encoding.Flag)},
			{Name: "total_protein", Field: KeyTotalProtein, Rule: Numeric()},
		},
	}
}

// AKD returns the acute kidney disease schema.
func AKD() Schema {
	return Schema{
		target: model.TargetAKD,
		inputs: []Field{
			{Key: KeyAge, Label: "Age", Unit: "years", Rule: WholeNumber()},
			flagField(KeyDiuretics, "Diuretics"),
			{
				Key:     KeyAKIGrade,
				Label:   "AKI grade",
				Rule:    Categorical(encoding.AKIGrade),
				Options: []string{"Stage 0", "Stage 1", "Stage 2", "Stage 3"},
			},
			numericField(KeyRBC, "RBC", "10^12/L"),
			numericField(KeySerumCalcium, "Serum calcium", "mmol/L"),
			numericField(KeyUrineSpecificGravity, "Urine specific gravity", ""),
			flagField(KeyAntineoplasticAgents, "Antineoplastic agents"),
			numericField(KeyCystatinC, "Cystatin C", "mg/L"),
			flagField(KeyHistoryOfSurgery, "History of surgery"),
			numericField(KeyHemoglobin, "Hemoglobin", "g/L"),
		},
		slots: []Slot{
			{Name: "age", Field: KeyAge, Rule: WholeNumber()},
			{Name: "diuretics", Field: KeyDiuretics, Rule: Categorical(encoding.Flag)},
			{Name: "aki_grade", Field: KeyAKIGrade, Rule: Categorical(encoding.AKIGrade)},
			{Name: "rbc", Field: KeyRBC, Rule: Numeric()},
			{Name: "serum_calcium", Field: KeySerumCalcium, Rule: Numeric()},
			{Name: "urine_specific_gravity", Field: KeyUrineSpecificGravity, Rule: Numeric()},
			{Name: "antineoplastic_agents", Field: KeyAntineoplasticAgents, Rule: Categorical(encoding.Flag)},
			{Name: "cystatin_c", Field: KeyCystatinC, Rule: Numeric()},
			{Name: "history_of_surgery", Field: KeyHistoryOfSurgery, Rule: Categorical(encoding.Flag)},
			{Name: "hemoglobin", Field: KeyHemoglobin, Rule: Numeric()},
		},
	}
}
