package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/okian/renalrisk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.AKIModelPath, convey.ShouldEqual, "models/aki_model.txt")
			convey.So(cfg.AKDModelPath, convey.ShouldEqual, "models/akd_model.txt")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 100)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":       func(c *config.Config) { c.Addr = " " },
			"empty aki path":   func(c *config.Config) { c.AKIModelPath = "" },
			"empty akd path":   func(c *config.Config) { c.AKDModelPath = "" },
			"zero batch size":  func(c *config.Config) { c.MaxBatchSize = 0 },
			"negative queue":   func(c *config.Config) { c.QueueSize = -1 },
			"unknown log form": func(c *config.Config) { c.LogFormat = "xml" },
		}

		for name, mutate := range cases {
			cfg := config.New(context.Background())
			mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
			}
		}
	})
}
