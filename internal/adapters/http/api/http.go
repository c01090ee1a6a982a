// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
	"github.com/okian/renalrisk/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Predict scores one observation synchronously.
	Predict(ctx context.Context, target model.Target, obs model.Observation) (model.Result, error)

	// PredictBatch scores items through the worker pool, in request order.
	PredictBatch(ctx context.Context, items []model.BatchItem) ([]model.Outcome, error)

	// Schemas lists every target schema.
	Schemas() []schema.Schema

	// Ready reports whether models are loaded.
	Ready() bool

	// MaxBatchSize caps batch requests.
	MaxBatchSize() int
}

// Server wires HTTP routes for the prediction API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	predictHandler *PredictHandler
	schemaHandler  *SchemaHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		predictHandler: NewPredictHandler(deps),
		schemaHandler:  NewSchemaHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /v1/schemas", MetricsMiddleware(s.schemaHandler.HandleList, "schemas"))
	mux.HandleFunc("GET /v1/schemas/{target}", MetricsMiddleware(s.schemaHandler.HandleGet, "schema"))
	// The literal batch route wins over the {target} wildcard.
	mux.HandleFunc("POST /v1/predict/batch", RequestID(MetricsMiddleware(s.predictHandler.HandleBatch, "predict_batch")))
	mux.HandleFunc("POST /v1/predict/{target}", RequestID(MetricsMiddleware(s.predictHandler.HandlePredict, "predict")))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorBody{Code: code, Message: msg})
}

// writeFailure maps a prediction error onto its HTTP status.
func writeFailure(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}
