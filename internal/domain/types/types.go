// Package types contains the JSON shapes exchanged over the HTTP API.
package types

import (
	"time"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
)

// Prediction is a single scored observation.
type Prediction struct {
	RequestID   string  `json:"request_id,omitempty"`
	Target      string  `json:"target"`
	Probability float64 `json:"probability"`
	Display     string  `json:"display"`
}

// NewPrediction converts a domain result for the wire.
func NewPrediction(requestID string, res model.Result) Prediction {
	return Prediction{
		RequestID:   requestID,
		Target:      string(res.Target),
		Probability: res.Probability,
		Display:     res.Display,
	}
}

// ErrorBody describes a failed request or batch item.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// BatchItem is one observation of a batch request.
type BatchItem struct {
	Target      string            `json:"target"`
	Observation model.Observation `json:"observation"`
}

// BatchRequest is the body of POST /v1/predict/batch.
type BatchRequest struct {
	Items []BatchItem `json:"items"`
}

// BatchItemResult is the outcome of one batch item, in request order.
type BatchItemResult struct {
	Index       int        `json:"index"`
	Target      string     `json:"target"`
	Probability *float64   `json:"probability,omitempty"`
	Display     string     `json:"display,omitempty"`
	Error       *ErrorBody `json:"error,omitempty"`
}

// BatchResponse is the reply to a batch request.
type BatchResponse struct {
	RequestID string            `json:"request_id,omitempty"`
	Items     []BatchItemResult `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// FieldSpec describes one input offered to clinicians.
type FieldSpec struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Unit    string   `json:"unit,omitempty"`
	Kind    string   `json:"kind"`
	Whole   bool     `json:"whole_number,omitempty"`
	Options []string `json:"options,omitempty"`
}

// SlotSpec describes one position of the encoded vector.
type SlotSpec struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Field    string `json:"field"`
}

// SchemaDescriptor is the public view of a target schema.
type SchemaDescriptor struct {
	Target string      `json:"target"`
	Label  string      `json:"label"`
	Inputs []FieldSpec `json:"inputs"`
	Slots  []SlotSpec  `json:"slots"`
}

// DescribeSchema builds the public view of s.
func DescribeSchema(s schema.Schema) SchemaDescriptor {
	d := SchemaDescriptor{
		Target: string(s.Target()),
		Label:  s.Target().Label(),
	}
	for _, f := range s.Inputs() {
		d.Inputs = append(d.Inputs, FieldSpec{
			Key:     f.Key,
			Label:   f.Label,
			Unit:    f.Unit,
			Kind:    string(f.Rule.Kind),
			Whole:   f.Rule.WholeNumber,
			Options: f.Options,
		})
	}
	for i, slot := range s.Slots() {
		d.Slots = append(d.Slots, SlotSpec{Position: i, Name: slot.Name, Field: slot.Field})
	}
	return d
}

// ModelStats describes a loaded model.
type ModelStats struct {
	Target         string    `json:"target"`
	Path           string    `json:"path"`
	Version        string    `json:"version"`
	Objective      string    `json:"objective"`
	Trees          int       `json:"trees"`
	Features       int       `json:"features"`
	LoadedAt       time.Time `json:"loaded_at"`
	LoadDurationMs float64   `json:"load_duration_ms"`
}

// Stats is the body of GET /stats.
type Stats struct {
	Started       bool         `json:"started"`
	Uptime        string       `json:"uptime,omitempty"`
	Models        []ModelStats `json:"models"`
	QueueLength   int          `json:"queue_length"`
	QueueCapacity int          `json:"queue_capacity"`
	Workers       int          `json:"workers"`
	ActiveWorkers int          `json:"active_workers"`
	Processed     int64        `json:"processed"`
	MaxBatchSize  int          `json:"max_batch_size"`
}
