package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"MACrossover/internal/model"
)

// Client talks to a running API server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// AppendBatch uploads observations to POST /data/bulk.
func (c *Client) AppendBatch(ctx context.Context, obs []model.Observation) (int, error) {
	reqs := make([]ObservationRequest, len(obs))
	for i, o := range obs {
		reqs[i] = newObservationRequest(o)
	}
	body, err := json.Marshal(reqs)
	if err != nil {
		return 0, fmt.Errorf("marshal batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/data/bulk", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	var msg MessageResponse
	if err := c.do(req, http.StatusCreated, &msg); err != nil {
		return 0, fmt.Errorf("bulk upload: %w", err)
	}
	return len(obs), nil
}

// Performance calls GET /strategy/performance.
func (c *Client) Performance(ctx context.Context, instrument string, window model.WindowConfig) (*model.PerformanceSummary, error) {
	q := url.Values{}
	q.Set("short_window", strconv.Itoa(window.Short))
	q.Set("long_window", strconv.Itoa(window.Long))
	if instrument != "" {
		q.Set("instrument", instrument)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/strategy/performance?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var sum model.PerformanceSummary
	if err := c.do(req, http.StatusOK, &sum); err != nil {
		return nil, fmt.Errorf("strategy performance: %w", err)
	}
	return &sum, nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		var e ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Detail != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, e.Detail)
		}
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
