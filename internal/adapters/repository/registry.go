package repository

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/renalrisk/internal/adapters/lightgbm"
	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
	"github.com/okian/renalrisk/pkg/logger"
	"github.com/okian/renalrisk/pkg/metrics"
)

// ModelInfo describes a loaded model.
type ModelInfo struct {
	Target       model.Target
	Path         string
	Version      string
	Objective    string
	Trees        int
	Features     int
	LoadedAt     time.Time
	LoadDuration time.Duration
}

type binding struct {
	info     ModelInfo
	ensemble *lightgbm.Ensemble
}

// Registry holds one immutable ensemble per target. It is read-only after
// Load and safe for concurrent use.
type Registry struct {
	logger logger.Logger
	paths  map[model.Target]string
	models map[model.Target]*binding
}

// Load reads every target's artifact exactly once. All artifacts must load;
// any failure is returned wrapped in ErrModelLoad and no registry is built.
func Load(ctx context.Context, opts ...Option) (*Registry, error) {
	r := &Registry{
		paths:  make(map[model.Target]string),
		models: make(map[model.Target]*binding),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("registry")
	}

	targets := model.Targets()
	loaded := make([]*binding, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		path, ok := r.paths[target]
		if !ok || path == "" {
			return nil, fmt.Errorf("%w: no artifact configured for %s", ErrModelLoad, target)
		}
		g.Go(func() error {
			b, err := loadOne(gctx, target, path)
			if err != nil {
				return err
			}
			loaded[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Error(ctx, "model load failed", logger.Error(err))
		return nil, err
	}

	for _, b := range loaded {
		r.models[b.info.Target] = b
		metrics.RecordModelLoad(string(b.info.Target), float64(b.info.LoadDuration.Microseconds())/1000.0, b.info.Trees, b.info.Features)
		r.logger.Info(ctx, "model loaded",
			logger.String("target", string(b.info.Target)),
			logger.String("path", b.info.Path),
			logger.String("version", b.info.Version),
			logger.Int("trees", b.info.Trees),
			logger.Duration("took", b.info.LoadDuration))
	}
	return r, nil
}

func loadOne(ctx context.Context, target model.Target, path string) (*binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, target, err)
	}
	s, err := schema.For(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	start := time.Now()
	e, err := lightgbm.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, target, err)
	}
	if e.NumFeatures() != s.Len() {
		return nil, fmt.Errorf("%w: %s model %s expects %d features, schema has %d: %w",
			ErrModelLoad, target, path, e.NumFeatures(), s.Len(), schema.ErrSchemaMismatch)
	}

	return &binding{
		ensemble: e,
		info: ModelInfo{
			Target:       target,
			Path:         path,
			Version:      e.Version(),
			Objective:    e.Objective(),
			Trees:        e.NumTrees(),
			Features:     e.NumFeatures(),
			LoadedAt:     time.Now().UTC(),
			LoadDuration: time.Since(start),
		},
	}, nil
}

// Score evaluates the model bound to target on vec and returns a probability
// within [0,1]. It holds no cache; identical input yields identical output.
func (r *Registry) Score(ctx context.Context, target model.Target, vec model.Vector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b, ok := r.models[target]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	if len(vec) != b.info.Features {
		return 0, fmt.Errorf("%w: %s vector has %d values, model expects %d",
			schema.ErrSchemaMismatch, target, len(vec), b.info.Features)
	}
	return b.ensemble.Predict(vec)
}

// Models describes the loaded models in target order.
func (r *Registry) Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(r.models))
	for _, target := range model.Targets() {
		if b, ok := r.models[target]; ok {
			out = append(out, b.info)
		}
	}
	return out
}
