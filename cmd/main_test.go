package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	repository "github.com/okian/renalrisk/internal/adapters/repository"
	"github.com/okian/renalrisk/internal/config"
	"github.com/okian/renalrisk/internal/domain/types"
)

const (
	akiFixture = "../internal/adapters/lightgbm/testdata/aki_model.txt"
	akdFixture = "../internal/adapters/lightgbm/testdata/akd_model.txt"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func fixtureConfig(t *testing.T, dir string) string {
	t.Helper()
	aki, _ := filepath.Abs(akiFixture)
	akd, _ := filepath.Abs(akdFixture)
	return writeFile(t, dir, "config.yaml",
		"log_level: warn\naki_model_path: "+aki+"\nakd_model_path: "+akd+"\nworker_count: 2\n")
}

func run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestPredictCommand(t *testing.T) {
	convey.Convey("Given a config pointing at the fixture models", t, func() {
		dir := t.TempDir()
		cfg := fixtureConfig(t, dir)
		aki := writeFile(t, dir, "aki.yaml", `diuretics: "NO"
serum_sodium: 140
urate_lowering_therapy: "Yes"
hypertension: "NO"
urine_protein: Negative
alp: 70
uric_acid: 350
blood_glucose: 5.5
ppi: "NO"
total_protein: 65
`)
		akd := writeFile(t, dir, "akd.json", `{"age": 60, "diuretics": "Yes", "aki_grade": "Stage 2",
"rbc": 4.0, "serum_calcium": 2.2, "urine_specific_gravity": 1.015,
"antineoplastic_agents": "NO", "cystatin_c": 1.1, "history_of_surgery": "Yes", "hemoglobin": 120}`)

		convey.Convey("When predicting AKI from a YAML document", func() {
			out, _, err := run("predict", "aki", "--config", cfg, "--file", aki)

			convey.Convey("Then the probability line is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "AKI Probability: 0.20\n")
			})
		})

		convey.Convey("When predicting AKD from a JSON document", func() {
			out, _, err := run("predict", "AKD", "--config", cfg, "--file", akd)

			convey.Convey("Then the probability line is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "AKD Probability: 0.60\n")
			})
		})

		convey.Convey("When --set overrides a document field", func() {
			out, _, err := run("predict", "aki", "--config", cfg, "--file", aki, "--set", "serum_sodium=140")

			convey.Convey("Then numeric values are parsed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "AKI Probability: 0.20\n")
			})
		})

		convey.Convey("When a categorical value is invalid", func() {
			_, _, err := run("predict", "aki", "--config", cfg, "--file", aki, "--set", "ppi=maybe")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "ppi")
			})
		})

		convey.Convey("When a --set is malformed", func() {
			_, _, err := run("predict", "aki", "--config", cfg, "--set", "serum_sodium")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the target is unknown", func() {
			_, _, err := run("predict", "ckd", "--config", cfg)

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestSchemaCommand(t *testing.T) {
	convey.Convey("Given the schema command", t, func() {
		convey.Convey("When printing every schema", func() {
			out, _, err := run("schema")

			convey.Convey("Then both targets are listed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "AKI inputs")
				convey.So(out, convey.ShouldContainSubstring, "AKD slots")
				convey.So(out, convey.ShouldContainSubstring, "Serum sodium (mmol/L)")
			})
		})

		convey.Convey("When printing one schema as JSON", func() {
			out, _, err := run("schema", "akd", "--json")

			convey.Convey("Then it decodes into descriptors", func() {
				convey.So(err, convey.ShouldBeNil)
				var descs []types.SchemaDescriptor
				convey.So(json.Unmarshal([]byte(out), &descs), convey.ShouldBeNil)
				convey.So(len(descs), convey.ShouldEqual, 1)
				convey.So(descs[0].Target, convey.ShouldEqual, "akd")
			})
		})
	})
}

func TestRunServer(t *testing.T) {
	convey.Convey("Given a config with a missing model", t, func() {
		cfg := config.New(context.Background())
		cfg.AKIModelPath = akiFixture
		cfg.AKDModelPath = filepath.Join(t.TempDir(), "missing.txt")
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("Then the server refuses to start", func() {
			err := runServer(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(strings.Contains(err.Error(), "start service"), convey.ShouldBeTrue)
			convey.So(errors.Is(err, repository.ErrModelLoad), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a started service behind the mux", t, func() {
		cfg := config.New(context.Background())
		cfg.AKIModelPath = akiFixture
		cfg.AKDModelPath = akdFixture
		cfg.WorkerCount = 2
		ctx := context.Background()

		svc := newService(cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, svc)

		convey.Convey("Then docs, readiness and metrics are served", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/readyz", "/healthz", "/stats", "/v1/schemas"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}
