package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	repository "github.com/okian/renalrisk/internal/adapters/repository"
	"github.com/okian/renalrisk/internal/config"
	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
	"github.com/okian/renalrisk/internal/domain/scoring"
	"github.com/okian/renalrisk/pkg/logger"
)

func predictCmd() *cobra.Command {
	var (
		sets []string
		file string
	)
	cmd := &cobra.Command{
		Use:   "predict <aki|akd>",
		Short: "Score one observation and print the probability",
		Example: `  renalrisk predict aki --file patient.yaml
  renalrisk predict akd --file patient.yaml --set age=72 --set aki_grade="Stage 1"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target, err := model.ParseTarget(args[0])
			if err != nil {
				return err
			}
			// Keep stdout for the result line.
			logger.SetOutput(cmd.ErrOrStderr())
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}

			s, err := schema.For(target)
			if err != nil {
				return err
			}
			obs, err := readObservation(file)
			if err != nil {
				return err
			}
			if err := applySets(s, obs, sets); err != nil {
				return err
			}

			res, err := predictOnce(ctx, cfg, target, obs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s Probability: %s\n", target.Label(), res.Display)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "observation field as key=value (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON observation document (- for stdin)")
	return cmd
}

// predictOnce loads both models, as the server does, and scores obs.
func predictOnce(ctx context.Context, cfg *config.Config, target model.Target, obs model.Observation) (model.Result, error) {
	registry, err := repository.Load(ctx,
		repository.WithArtifact(model.TargetAKI, cfg.AKIModelPath),
		repository.WithArtifact(model.TargetAKD, cfg.AKDModelPath),
	)
	if err != nil {
		return model.Result{}, err
	}
	dispatcher, err := scoring.NewDispatcher(registry)
	if err != nil {
		return model.Result{}, err
	}
	return dispatcher.Predict(ctx, target, obs)
}

func readObservation(path string) (model.Observation, error) {
	obs := model.Observation{}
	if path == "" {
		return obs, nil
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read observation: %w", err)
	}
	// YAML is a superset of JSON, so one decoder serves both.
	if err := yaml.Unmarshal(data, &obs); err != nil {
		return nil, fmt.Errorf("parse observation %s: %w", path, err)
	}
	if obs == nil {
		obs = model.Observation{}
	}
	return obs, nil
}

// applySets overlays key=value pairs. Values for numeric fields are parsed
// as numbers; anything else is kept as an option label.
func applySets(s schema.Schema, obs model.Observation, sets []string) error {
	for _, kv := range sets {
		key, val, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("--set %q: expected key=value", kv)
		}
		val = strings.TrimSpace(val)
		if f, known := s.Input(key); known && f.Rule.Kind == schema.KindNumeric {
			if n, err := strconv.ParseFloat(val, 64); err == nil {
				obs[key] = n
				continue
			}
		}
		obs[key] = val
	}
	return nil
}
