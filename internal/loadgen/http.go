package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/renalrisk/internal/domain/types"
)

// HTTPClient wraps http.Client for the predictor endpoints.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	runID   string
}

func newHTTPClient(baseURL, runID string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		runID:   runID,
	}
}

// Get performs a GET request and returns the status and body.
func (c *HTTPClient) Get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post performs a POST request with a JSON body and returns the status and
// body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("X-Loadgen-Run", c.runID)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Predict submits one sample.
func (c *HTTPClient) Predict(ctx context.Context, s Sample) (types.Prediction, int, error) {
	status, body, err := c.Post(ctx, "/v1/predict/"+string(s.Target), s.Observation)
	if err != nil {
		return types.Prediction{}, status, err
	}
	var p types.Prediction
	if status == http.StatusOK {
		if err := json.Unmarshal(body, &p); err != nil {
			return types.Prediction{}, status, fmt.Errorf("decode prediction: %w", err)
		}
	}
	return p, status, nil
}

// PredictBatch submits samples as one batch.
func (c *HTTPClient) PredictBatch(ctx context.Context, samples []Sample) (types.BatchResponse, int, error) {
	req := types.BatchRequest{Items: make([]types.BatchItem, len(samples))}
	for i, s := range samples {
		req.Items[i] = types.BatchItem{Target: string(s.Target), Observation: s.Observation}
	}
	status, body, err := c.Post(ctx, "/v1/predict/batch", req)
	if err != nil {
		return types.BatchResponse{}, status, err
	}
	var resp types.BatchResponse
	if status == http.StatusOK {
		if err := json.Unmarshal(body, &resp); err != nil {
			return types.BatchResponse{}, status, fmt.Errorf("decode batch: %w", err)
		}
	}
	return resp, status, nil
}

// result is what a sample scored to; ok is false when it was not scored.
type result struct {
	probability float64
	display     string
	ok          bool
}

func fromPrediction(p types.Prediction) result {
	return result{probability: p.Probability, display: p.Display, ok: true}
}

func fromBatchItem(item types.BatchItemResult) result {
	if item.Error != nil || item.Probability == nil {
		return result{}
	}
	return result{probability: *item.Probability, display: item.Display, ok: true}
}
