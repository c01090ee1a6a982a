// Package scoring routes observations through the matching schema and model.
package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
	"github.com/okian/renalrisk/pkg/logger"
	"github.com/okian/renalrisk/pkg/metrics"
)

// Scorer evaluates the model bound to a target on an encoded vector.
type Scorer interface {
	Score(ctx context.Context, target model.Target, vec model.Vector) (float64, error)
}

// Dispatcher turns observations into probabilities. It keeps no per-request
// state and is safe for concurrent use.
type Dispatcher struct {
	scorer  Scorer
	schemas map[model.Target]schema.Schema
	logger  logger.Logger
}

// NewDispatcher validates every built-in schema and binds it to scorer.
func NewDispatcher(scorer Scorer, opts ...Option) (*Dispatcher, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scoring: nil scorer")
	}
	d := &Dispatcher{
		scorer:  scorer,
		schemas: make(map[model.Target]schema.Schema),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("dispatcher")
	}

	for _, s := range schema.All() {
		if err := schema.Validate(s); err != nil {
			return nil, err
		}
		d.schemas[s.Target()] = s
	}
	return d, nil
}

// Schema returns the schema bound to target.
func (d *Dispatcher) Schema(target model.Target) (schema.Schema, error) {
	s, ok := d.schemas[target]
	if !ok {
		return schema.Schema{}, fmt.Errorf("%w: %q", model.ErrUnknownTarget, target)
	}
	return s, nil
}

// Predict encodes obs for target, scores it and formats the result.
// Errors are returned wrapped; nothing is retried and no partial result is
// produced.
func (d *Dispatcher) Predict(ctx context.Context, target model.Target, obs model.Observation) (model.Result, error) {
	start := time.Now()

	res, err := d.predict(ctx, target, obs)
	if err != nil {
		kind := Kind(err)
		metrics.RecordPredictionError(string(target), kind)
		d.logger.Debug(ctx, "prediction rejected",
			logger.String("target", string(target)),
			logger.String("kind", kind),
			logger.Error(err))
		return model.Result{}, err
	}

	elapsed := time.Since(start)
	metrics.RecordPrediction(string(target), float64(elapsed.Microseconds())/1000.0, res.Probability)
	d.logger.Debug(ctx, "prediction served",
		logger.String("target", string(target)),
		logger.Float64("probability", res.Probability),
		logger.Duration("took", elapsed))
	return res, nil
}

func (d *Dispatcher) predict(ctx context.Context, target model.Target, obs model.Observation) (model.Result, error) {
	s, err := d.Schema(target)
	if err != nil {
		return model.Result{}, err
	}
	vec, err := schema.Build(s, obs)
	if err != nil {
		return model.Result{}, fmt.Errorf("encode %s: %w", target, err)
	}
	p, err := d.scorer.Score(ctx, target, vec)
	if err != nil {
		return model.Result{}, fmt.Errorf("score %s: %w", target, err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return model.Result{}, fmt.Errorf("%w: %s scored %v", ErrScoreOutOfRange, target, p)
	}
	return model.NewResult(target, p), nil
}
