package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marginmind/backend/internal/apierrors"
	"github.com/marginmind/backend/internal/auth"
	"github.com/marginmind/backend/internal/model"
)

// apiClient is a thin client for the strategy API. All analysis happens
// server-side; the CLI only fetches and renders.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *apiClient) Strategies(ctx context.Context, serviceID string) (*model.StrategyResponse, error) {
	var resp model.StrategyResponse
	if err := c.getJSON(ctx, "/api/v1/strategies/"+url.PathEscape(serviceID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) Renewal(ctx context.Context, serviceID string) (*model.RenewalResponse, error) {
	var resp model.RenewalResponse
	if err := c.getJSON(ctx, "/api/v1/strategies/"+url.PathEscape(serviceID)+"/renewal", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set(auth.HeaderName, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call strategy API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apierrors.APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("strategy API returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
