package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/vision-audit/pkg/models/api"
)

// StatusError is returned when the server answers with a non-2xx code.
// The message carries whatever the server wrote in the body.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client is a typed client for the vision-audit web API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func NewClient(rawURL string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", rawURL)
	}
	return &Client{
		baseURL: u,
		// Comprehensive assessments decode every image, so the budget
		// is generous.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (c *Client) ListDatasets(ctx context.Context) ([]api.DatasetProfile, error) {
	var datasets []api.DatasetProfile
	if err := c.do(ctx, http.MethodGet, nil, &datasets, "datasets"); err != nil {
		return nil, err
	}
	return datasets, nil
}

func (c *Client) RunAssessment(ctx context.Context, profile, mode string) (*api.AssessmentResponse, error) {
	query := url.Values{}
	if mode != "" {
		query.Set("mode", mode)
	}
	var response api.AssessmentResponse
	if err := c.do(ctx, http.MethodPost, query, &response, "datasets", profile, "assessments"); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) LatestResult(ctx context.Context, profile string) (*api.QualityReport, error) {
	var report api.QualityReport
	if err := c.do(ctx, http.MethodGet, nil, &report, "datasets", profile, "assessments", "latest"); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) ListResults(ctx context.Context, profile string, limit int) ([]api.QualityReport, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var reports []api.QualityReport
	if err := c.do(ctx, http.MethodGet, query, &reports, "datasets", profile, "assessments"); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *Client) Comparison(ctx context.Context, profile, againstRunID string) (*api.ComparisonReport, error) {
	query := url.Values{}
	if againstRunID != "" {
		query.Set("against", againstRunID)
	}
	var report api.ComparisonReport
	if err := c.do(ctx, http.MethodGet, query, &report, "datasets", profile, "comparison"); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) Trend(ctx context.Context, profile string) (*api.TrendReport, error) {
	var report api.TrendReport
	if err := c.do(ctx, http.MethodGet, nil, &report, "datasets", profile, "trend"); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) do(ctx context.Context, method string, query url.Values, out any, elem ...string) error {
	logger := zerolog.Ctx(ctx)

	u := c.baseURL.JoinPath(append([]string{"api", "v1"}, elem...)...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
