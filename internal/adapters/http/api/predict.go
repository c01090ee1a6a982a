package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/scoring"
	"github.com/okian/renalrisk/internal/domain/types"
)

// maxBodyBytes bounds request bodies; a full batch of observations fits
// comfortably.
const maxBodyBytes = 1 << 20

// PredictHandler serves single and batch predictions.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles POST /v1/predict/{target}. The body is the
// observation object itself.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	target, err := model.ParseTarget(r.PathValue("target"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	var obs model.Observation
	if err := decode(w, r, &obs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Predict(r.Context(), target, obs)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewPrediction(RequestIDFrom(r.Context()), res))
}

// HandleBatch handles POST /v1/predict/batch.
func (h *PredictHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_batch"
	var req types.BatchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: no items", op, ErrBadRequest))
		return
	}
	if limit := h.deps.MaxBatchSize(); len(req.Items) > limit {
		writeError(w, http.StatusBadRequest, "batch_too_large",
			fmt.Errorf("%s: %w: %d items, limit %d", op, model.ErrBatchTooLarge, len(req.Items), limit))
		return
	}

	results := make([]types.BatchItemResult, len(req.Items))
	var items []model.BatchItem
	var positions []int
	for i, item := range req.Items {
		results[i] = types.BatchItemResult{Index: i, Target: item.Target}
		target, err := model.ParseTarget(item.Target)
		if err != nil {
			_, body := classify(err)
			results[i].Error = &body
			continue
		}
		results[i].Target = string(target)
		items = append(items, model.BatchItem{Target: target, Observation: item.Observation})
		positions = append(positions, i)
	}

	var outcomes []model.Outcome
	if len(items) > 0 {
		var err error
		outcomes, err = h.deps.PredictBatch(r.Context(), items)
		if err != nil {
			writeFailure(w, err)
			return
		}
	}

	rejected := 0
	for k, o := range outcomes {
		i := positions[k]
		if o.Err != nil {
			if errors.Is(o.Err, ErrBackpressure) {
				rejected++
			}
			_, body := classify(o.Err)
			results[i].Error = &body
			continue
		}
		p := o.Result.Probability
		results[i].Probability = &p
		results[i].Display = o.Result.Display
	}
	if len(outcomes) > 0 && rejected == len(outcomes) {
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%s: %w", op, ErrBackpressure))
		return
	}

	resp := types.BatchResponse{RequestID: RequestIDFrom(r.Context()), Items: results}
	for _, res := range results {
		if res.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a single JSON document, keeping numbers exact.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON document")
	}
	return nil
}

// classify maps an error onto a status code and wire body.
func classify(err error) (int, types.ErrorBody) {
	body := types.ErrorBody{Message: err.Error(), Field: scoring.Field(err)}
	switch {
	case errors.Is(err, ErrNotReady):
		body.Code = "not_ready"
		return http.StatusServiceUnavailable, body
	case errors.Is(err, ErrBackpressure):
		body.Code = "backpressure"
		return http.StatusTooManyRequests, body
	case errors.Is(err, model.ErrBatchTooLarge):
		body.Code = "batch_too_large"
		return http.StatusBadRequest, body
	case errors.Is(err, ErrBadRequest):
		body.Code = "bad_request"
		return http.StatusBadRequest, body
	}

	body.Code = scoring.Kind(err)
	switch body.Code {
	case scoring.KindInvalidCategory, scoring.KindMissingFeature, scoring.KindInvalidValue:
		return http.StatusBadRequest, body
	case scoring.KindUnknownTarget:
		return http.StatusNotFound, body
	case scoring.KindCanceled:
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusInternalServerError, body
	}
}
