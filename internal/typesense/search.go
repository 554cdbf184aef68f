package typesense

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SearchParams is one sub-search of a multi-search request.
type SearchParams struct {
	Collection          string `json:"collection"`
	Q                   string `json:"q"`
	QueryBy             string `json:"query_by"`
	QueryByWeights      string `json:"query_by_weights,omitempty"`
	SortBy              string `json:"sort_by,omitempty"`
	PerPage             int    `json:"per_page,omitempty"`
	Page                int    `json:"page,omitempty"`
	Infix               string `json:"infix,omitempty"`
	Prefix              string `json:"prefix,omitempty"`
	IncludeFields       string `json:"include_fields,omitempty"`
	HighlightFullFields string `json:"highlight_full_fields,omitempty"`
}

// SearchHit is a single matching document.
type SearchHit struct {
	Document json.RawMessage `json:"document"`
}

// SearchResult is one sub-search result of a multi-search response. A failed
// sub-search carries Code and Error instead of hits.
type SearchResult struct {
	Found int         `json:"found"`
	Hits  []SearchHit `json:"hits"`
	Code  int         `json:"code"`
	Error string      `json:"error"`
}

// Failed reports whether this sub-search errored server-side.
func (r SearchResult) Failed() bool {
	return r.Error != "" || (r.Code != 0 && r.Code >= 400)
}

// MultiSearch executes several searches in one round trip. The result slice
// is positionally aligned with the request slice; individual sub-searches may
// have failed even when the call itself succeeds.
func (c *Client) MultiSearch(ctx context.Context, searches []SearchParams) ([]SearchResult, error) {
	body, err := json.Marshal(struct {
		Searches []SearchParams `json:"searches"`
	}{Searches: searches})
	if err != nil {
		return nil, fmt.Errorf("marshal multi-search request: %w", err)
	}

	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/multi_search", body, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Health reports whether the server considers itself healthy.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}

// Metrics returns the server's resource usage metrics as raw JSON.
func (c *Client) Metrics(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/metrics.json", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the server's API request stats as raw JSON.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/stats.json", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
