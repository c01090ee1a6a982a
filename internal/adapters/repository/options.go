// Package repository owns the pretrained models and scores encoded vectors.
package repository

import (
	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/pkg/logger"
)

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithArtifact sets the model file for target.
func WithArtifact(target model.Target, path string) Option {
	return func(r *Registry) {
		r.paths[target] = path
	}
}

// WithLogger sets a custom logger for the registry.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
