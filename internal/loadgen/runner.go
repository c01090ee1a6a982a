package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
	"github.com/okian/renalrisk/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run generates observations, submits them concurrently and verifies the
// answers. It returns the collected statistics even when verification fails.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "starting load run",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Int("batchSize", config.BatchSize))

	client := newHTTPClient(config.BaseURL, stats.RunID, config.Timeout)

	// Step 1: Check readiness
	if err := checkReady(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: Generate observations
	samples := generateSamples(stats.RunID, config.Requests)
	stats.Generated = len(samples)

	// Step 3: Submit concurrently
	results := submit(ctx, client, config, samples, stats)

	// Step 4: Verify
	verifyErr := verify(ctx, client, config, samples, results, stats)

	// Step 5: Save observations
	if config.OutputFile != "" {
		if err := saveSamples(config.OutputFile, samples); err != nil {
			log.Warn(ctx, "failed to save observations", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if verifyErr != nil {
		return stats, verifyErr
	}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("run interrupted: %w", err)
	}
	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

func checkReady(ctx context.Context, client *HTTPClient) error {
	status, _, err := client.Get(ctx, "/readyz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: readyz returned %d", ErrNotReady, status)
	}
	return nil
}

func generateSamples(runID string, n int) []Sample {
	schemas := schema.All()
	samples := make([]Sample, n)
	for i := range samples {
		s := schemas[randomIndex(len(schemas))]
		samples[i] = Sample{
			ID:          runID + "-" + strconv.Itoa(i),
			Target:      s.Target(),
			Observation: Generate(s),
		}
	}
	return samples
}

// submit sends every sample, singly or in batches, from config.Workers
// goroutines and returns results indexed like samples.
func submit(ctx context.Context, client *HTTPClient, config *Config, samples []Sample, stats *Stats) []result {
	results := make([]result, len(samples))

	batchSize := config.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	var submitted, successful, rejected, failed int64
	chunks := make(chan [2]int, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for span := range chunks {
				if ctx.Err() != nil {
					continue
				}
				part := samples[span[0]:span[1]]
				atomic.AddInt64(&submitted, int64(len(part)))

				if batchSize == 1 {
					p, status, err := client.Predict(ctx, part[0])
					switch {
					case err != nil:
						atomic.AddInt64(&failed, 1)
					case status != http.StatusOK:
						atomic.AddInt64(&rejected, 1)
					default:
						atomic.AddInt64(&successful, 1)
						results[span[0]] = fromPrediction(p)
					}
					continue
				}

				resp, status, err := client.PredictBatch(ctx, part)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, int64(len(part)))
				case status != http.StatusOK || len(resp.Items) != len(part):
					atomic.AddInt64(&rejected, int64(len(part)))
				default:
					for k, item := range resp.Items {
						r := fromBatchItem(item)
						if !r.ok {
							atomic.AddInt64(&rejected, 1)
							continue
						}
						atomic.AddInt64(&successful, 1)
						results[span[0]+k] = r
					}
				}
			}
		}()
	}

	for start := 0; start < len(samples); start += batchSize {
		end := min(start+batchSize, len(samples))
		select {
		case <-ctx.Done():
		case chunks <- [2]int{start, end}:
		}
	}
	close(chunks)
	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Successful = int(successful)
	stats.Rejected = int(rejected)
	stats.Failed = int(failed)
	return results
}

// verify checks every scored sample is a probability with a matching display
// string, then resubmits a sample singly and expects identical answers.
func verify(ctx context.Context, client *HTTPClient, config *Config, samples []Sample, results []result, stats *Stats) error {
	stats.Probability.Min, stats.Probability.Max = math.Inf(1), math.Inf(-1)
	var problems []string
	for i, r := range results {
		if !r.ok {
			continue
		}
		if r.probability < 0 || r.probability > 1 || math.IsNaN(r.probability) {
			problems = append(problems, fmt.Sprintf("%s: probability %v outside [0,1]", samples[i].ID, r.probability))
		}
		if r.display != model.FormatProbability(r.probability) {
			problems = append(problems, fmt.Sprintf("%s: display %q does not match %v", samples[i].ID, r.display, r.probability))
		}
		stats.Probability.Min = math.Min(stats.Probability.Min, r.probability)
		stats.Probability.Max = math.Max(stats.Probability.Max, r.probability)
	}

	checked := 0
	for i, r := range results {
		if checked >= config.VerifySample || ctx.Err() != nil {
			break
		}
		if !r.ok {
			continue
		}
		checked++
		p, status, err := client.Predict(ctx, samples[i])
		if err != nil || status != http.StatusOK {
			problems = append(problems, fmt.Sprintf("%s: resubmission failed (status %d, err %v)", samples[i].ID, status, err))
			continue
		}
		if p.Probability != r.probability {
			problems = append(problems, fmt.Sprintf("%s: resubmission gave %v, first answer %v", samples[i].ID, p.Probability, r.probability))
		}
	}
	stats.Verified = checked

	if stats.Successful == 0 && stats.Generated > 0 {
		problems = append(problems, "no observation was scored")
	}
	if len(problems) > 0 {
		for _, p := range problems {
			logger.Get().Error(ctx, "verification problem", logger.String("detail", p))
		}
		return fmt.Errorf("%w: %d problems, first: %s", ErrVerification, len(problems), problems[0])
	}
	return nil
}

func saveSamples(filename string, samples []Sample) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal observations: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.String("runID", stats.RunID),
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Float64("minProbability", stats.Probability.Min),
		logger.Float64("maxProbability", stats.Probability.Max),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", perSecond))
}
