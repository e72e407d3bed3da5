/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package charai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/acronis/charai-gateway/httpclient"
)

const requestType = "charai-character-info"

// Client fetches character info from the chat service.
// Every call makes exactly one outbound request: nothing is retried or cached.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a new Client. httpClient is expected to be built by NewHTTPClient or httpclient.NewWithOpts.
func NewClient(httpClient *http.Client, cfg *Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, endpoint: cfg.Endpoint}
}

// NewHTTPClient creates an HTTP client for the chat service with the round trippers configured in cfg.Client.
func NewHTTPClient(cfg *Config, collector httpclient.MetricsCollector, userAgent string) (*http.Client, error) {
	return httpclient.NewWithOpts(cfg.Client, httpclient.Opts{
		UserAgent:    userAgent,
		RequestType:  requestType,
		Collector:    collector,
		AuthProvider: httpclient.StaticAuth("Token", cfg.Token),
	})
}

type characterInfoRequest struct {
	ExternalID string `json:"external_id"`
}

// FetchCharacterInfo returns the raw JSON body describing the character.
// A non-2xx answer is returned as *UpstreamError.
func (c *Client) FetchCharacterInfo(ctx context.Context, externalID string) ([]byte, error) {
	reqBody, err := json.Marshal(characterInfoRequest{ExternalID: externalID})
	if err != nil {
		return nil, fmt.Errorf("marshal character info request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create character info request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do character info request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read character info response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newUpstreamError(resp, respBody)
	}
	return respBody, nil
}
