// Package typesense is a typed client for the slice of the Typesense HTTP API
// this service consumes: collections, aliases, document import, synonyms,
// multi-search, and the health/metrics endpoints.
package typesense

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const apiKeyHeader = "X-TYPESENSE-API-KEY"

// ErrAliasNotFound is returned when an alias does not exist on the server.
var ErrAliasNotFound = errors.New("typesense: alias not found")

// ErrCollectionNotFound is returned when a collection does not exist.
var ErrCollectionNotFound = errors.New("typesense: collection not found")

// HTTPDoer is the interface for executing HTTP requests. Both
// httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds the Typesense server connection parameters.
type Config struct {
	Host     string
	Port     int
	Protocol string
	APIKey   string
}

// BaseURL returns the server base URL, e.g. "http://localhost:8108".
func (c Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}

// Validate checks that the connection parameters are usable.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("typesense host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("typesense port %d out of range", c.Port)
	}
	if c.Protocol != "http" && c.Protocol != "https" {
		return fmt.Errorf("typesense protocol %q must be http or https", c.Protocol)
	}
	if c.APIKey == "" {
		return errors.New("typesense api key is required")
	}
	return nil
}

// Client talks to a single Typesense server.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPDoer
}

// NewClient creates a Typesense client over the given transport.
func NewClient(cfg Config, doer HTTPDoer) *Client {
	return &Client{
		baseURL: cfg.BaseURL(),
		apiKey:  cfg.APIKey,
		http:    doer,
	}
}

// apiError is the error envelope Typesense returns on non-2xx responses.
type apiError struct {
	Message string `json:"message"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes the request and decodes the JSON response body into out (when
// out is non-nil). Non-2xx responses are turned into errors carrying the
// server's message.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("typesense %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(resp, method, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("typesense %s %s: decode response: %w", method, path, err)
	}
	return nil
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("typesense %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

func (c *Client) responseError(resp *http.Response, method, path string) error {
	var apiErr apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Message: msg}
}

// Collection describes a collection as reported by the server.
type Collection struct {
	Name         string `json:"name"`
	NumDocuments int64  `json:"num_documents"`
}

// Field is one field definition in a collection schema. Index uses a pointer
// so that the default (indexed) is omitted and only explicit "index": false
// is serialized.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Index    *bool  `json:"index,omitempty"`
	Infix    bool   `json:"infix,omitempty"`
	Sort     bool   `json:"sort,omitempty"`
}

// CollectionSchema is the schema document for collection creation.
type CollectionSchema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// CreateCollection creates a new collection with the given schema.
func (c *Client) CreateCollection(ctx context.Context, schema CollectionSchema) error {
	body, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal collection schema: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/collections", body, nil)
}

// ListCollections returns all collections on the server.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	var out []Collection
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RetrieveCollection returns a single collection by name.
func (c *Client) RetrieveCollection(ctx context.Context, name string) (*Collection, error) {
	var out Collection
	err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(name), nil, &out)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil, err
	}
	return &out, nil
}

// DeleteCollection drops a collection and all its documents.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(name), nil, nil)
}

// Alias maps a stable logical name to a physical collection.
type Alias struct {
	Name           string `json:"name"`
	CollectionName string `json:"collection_name"`
}

// UpsertAlias atomically points alias at the given collection.
func (c *Client) UpsertAlias(ctx context.Context, alias, collection string) error {
	body, err := json.Marshal(map[string]string{"collection_name": collection})
	if err != nil {
		return fmt.Errorf("marshal alias body: %w", err)
	}
	return c.do(ctx, http.MethodPut, "/aliases/"+url.PathEscape(alias), body, nil)
}

// RetrieveAlias resolves an alias to its current collection name. Returns
// ErrAliasNotFound when the alias does not exist.
func (c *Client) RetrieveAlias(ctx context.Context, alias string) (string, error) {
	var out Alias
	err := c.do(ctx, http.MethodGet, "/aliases/"+url.PathEscape(alias), nil, &out)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrAliasNotFound, alias)
		}
		return "", err
	}
	return out.CollectionName, nil
}

// ListAliases returns all aliases on the server.
func (c *Client) ListAliases(ctx context.Context) ([]Alias, error) {
	var out struct {
		Aliases []Alias `json:"aliases"`
	}
	if err := c.do(ctx, http.MethodGet, "/aliases", nil, &out); err != nil {
		return nil, err
	}
	return out.Aliases, nil
}

// isNotFound reports whether the error carries a 404 status from the server.
func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound
}
