// Package service wires the model registry, the prediction dispatcher and
// the batch worker pool into the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	predictionqueue "github.com/okian/renalrisk/internal/adapters/mq/queue"
	workerpool "github.com/okian/renalrisk/internal/adapters/mq/worker"
	repository "github.com/okian/renalrisk/internal/adapters/repository"
	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
	"github.com/okian/renalrisk/internal/domain/scoring"
	"github.com/okian/renalrisk/internal/domain/types"
	"github.com/okian/renalrisk/pkg/logger"
	"github.com/okian/renalrisk/pkg/metrics"
)

const (
	defaultQueueSize    = 1024
	defaultMaxBatchSize = 100
	stopTimeout         = 10 * time.Second
)

// Service implements the API dependencies for the risk predictor.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry   *repository.Registry
	dispatcher *scoring.Dispatcher
	queue      *predictionqueue.InMemoryQueue
	pool       *workerpool.Pool

	// Configuration
	artifacts    map[model.Target]string
	workerCount  int
	queueSize    int
	maxBatchSize int

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithArtifact sets the model file loaded for target.
func WithArtifact(target model.Target, path string) Option {
	return func(s *Service) {
		s.artifacts[target] = path
	}
}

// WithWorkerCount sets the number of batch worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the batch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxBatchSize caps the number of items in one batch.
func WithMaxBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		artifacts:    make(map[model.Target]string),
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		maxBatchSize: defaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads every model and starts the batch workers. A model that fails
// to load aborts startup and nothing is started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting predictor service...")

	loadOpts := []repository.Option{repository.WithLogger(s.logger.Named("registry"))}
	for target, path := range s.artifacts {
		loadOpts = append(loadOpts, repository.WithArtifact(target, path))
	}
	registry, err := repository.Load(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	dispatcher, err := scoring.NewDispatcher(registry, scoring.WithLogger(s.logger.Named("dispatcher")))
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}

	// Workers outlive the start request; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	q := predictionqueue.NewInMemoryQueue(predictionqueue.WithCapacity(s.queueSize))
	pool := workerpool.NewPool(s.workerCount, q, dispatcher)
	pool.Start(runCtx)
	go metrics.RunRuntimeSampler(runCtx)

	s.registry = registry
	s.dispatcher = dispatcher
	s.queue = q
	s.pool = pool
	s.cancel = cancel
	s.started = true
	s.startedAt = time.Now()

	s.logger.Info(ctx, "predictor service started",
		logger.Int("workers", pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxBatchSize", s.maxBatchSize),
	)
	return nil
}

// Stop drains queued batch work and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping predictor service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "predictor service stopped")
}

// Ready reports whether both models are loaded and predictions are served.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// MaxBatchSize returns the largest accepted batch.
func (s *Service) MaxBatchSize() int { return s.maxBatchSize }

func (s *Service) dispatcherIfStarted() (*scoring.Dispatcher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, model.ErrNotReady
	}
	return s.dispatcher, nil
}

// Predict scores one observation synchronously.
func (s *Service) Predict(ctx context.Context, target model.Target, obs model.Observation) (model.Result, error) {
	d, err := s.dispatcherIfStarted()
	if err != nil {
		return model.Result{}, err
	}
	return d.Predict(ctx, target, obs)
}

// PredictBatch fans items out to the worker pool and returns one outcome per
// item in request order. Items the queue cannot accept fail individually
// with model.ErrBackpressure; the call itself fails only when the batch is
// rejected as a whole or ctx ends first.
func (s *Service) PredictBatch(ctx context.Context, items []model.BatchItem) ([]model.Outcome, error) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()

	if !started {
		return nil, model.ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(items) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d items, limit %d", model.ErrBatchTooLarge, len(items), s.maxBatchSize)
	}

	outcomes := make([]model.Outcome, len(items))
	reply := make(chan model.Outcome, len(items))
	pending := 0
	for i, item := range items {
		job := model.Job{
			ID:          uuid.NewString(),
			Index:       i,
			Target:      item.Target,
			Observation: item.Observation,
			Reply:       reply,
		}
		if !q.Enqueue(ctx, job) {
			outcomes[i] = model.Outcome{JobID: job.ID, Index: i, Err: model.ErrBackpressure}
			continue
		}
		pending++
	}

	for pending > 0 {
		select {
		case o := <-reply:
			outcomes[o.Index] = o
			pending--
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return outcomes, nil
}

// Schemas returns every target schema in target order.
func (s *Service) Schemas() []schema.Schema {
	return schema.All()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Started:       s.started,
		QueueCapacity: s.queueSize,
		Workers:       s.workerCount,
		MaxBatchSize:  s.maxBatchSize,
		Models:        []types.ModelStats{},
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats.Uptime = time.Since(s.startedAt).Round(time.Second).String()
	stats.QueueLength = s.queue.Len(ctx)
	stats.Workers = s.pool.Size()
	stats.ActiveWorkers = s.pool.Active()
	stats.Processed = s.pool.Processed()
	for _, m := range s.registry.Models() {
		stats.Models = append(stats.Models, types.ModelStats{
			Target:         string(m.Target),
			Path:           m.Path,
			Version:        m.Version,
			Objective:      m.Objective,
			Trees:          m.Trees,
			Features:       m.Features,
			LoadedAt:       m.LoadedAt,
			LoadDurationMs: float64(m.LoadDuration.Microseconds()) / 1000.0,
		})
	}
	return stats
}
