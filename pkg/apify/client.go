// Package apify is a thin HTTP client for the Apify actor-task API: start a
// named task run, wait for it to finish, and collect its dataset items.
package apify

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

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Apify v2 API.
const defaultBaseURL = "https://api.apify.com/v2"

// Run statuses reported by the platform.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborted   = "ABORTED"
)

// Client defines the Apify API operations used by the research pipeline.
type Client interface {
	RunTask(ctx context.Context, taskID string, input map[string]any) (*Run, error)
	GetDatasetItems(ctx context.Context, datasetID string) ([]map[string]any, error)
}

// Run describes a single actor-task run.
type Run struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Succeeded reports whether the run reached a successful terminal status.
func (r *Run) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithWaitForFinish sets how long the platform blocks waiting for the run to
// reach a terminal status before returning (capped at 300s by the API).
func WithWaitForFinish(d time.Duration) Option {
	return func(c *httpClient) {
		c.waitForFinish = d
	}
}

// WithRateLimit throttles outgoing API requests.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	token         string
	baseURL       string
	waitForFinish time.Duration
	http          *http.Client
	limiter       *rate.Limiter
}

// NewClient creates a new Apify client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:         token,
		baseURL:       defaultBaseURL,
		waitForFinish: 120 * time.Second,
		http: &http.Client{
			Timeout: 300 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// runEnvelope wraps the run object in the API's data envelope.
type runEnvelope struct {
	Data Run `json:"data"`
}

func (c *httpClient) RunTask(ctx context.Context, taskID string, input map[string]any) (*Run, error) {
	waitSecs := int(c.waitForFinish.Seconds())
	path := fmt.Sprintf("/actor-tasks/%s/runs?waitForFinish=%s",
		url.PathEscape(taskID), strconv.Itoa(waitSecs))

	var envelope runEnvelope
	if err := c.post(ctx, path, input, &envelope); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: run task %s", taskID))
	}
	return &envelope.Data, nil
}

func (c *httpClient) GetDatasetItems(ctx context.Context, datasetID string) ([]map[string]any, error) {
	path := fmt.Sprintf("/datasets/%s/items?clean=true", url.PathEscape(datasetID))

	var items []map[string]any
	if err := c.get(ctx, path, &items); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apify: get dataset items %s", datasetID))
	}
	return items, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(ctx, req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(ctx, req, out)
}

func (c *httpClient) do(ctx context.Context, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
