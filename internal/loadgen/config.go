// Package loadgen drives a running predictor over HTTP with random valid
// observations and checks the answers it gets back.
package loadgen

import (
	"errors"
	"time"
)

// Sentinel errors for this package.
var (
	ErrNotReady     = errors.New("service not ready")
	ErrVerification = errors.New("verification failed")
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Requests     int           // Number of observations to generate
	Workers      int           // Number of concurrent submitters
	BatchSize    int           // Items per batch request; 0 or 1 submits singly
	VerifySample int           // Observations resubmitted to check determinism
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Optional JSON dump of generated observations
}

// Stats holds run statistics.
type Stats struct {
	RunID       string
	Generated   int
	Submitted   int
	Successful  int
	Rejected    int // 4xx/5xx responses or failed batch items
	Failed      int // transport errors
	Verified    int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Probability struct {
		Min, Max float64
	}
}
