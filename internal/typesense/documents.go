package typesense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// ImportAction selects the server-side write semantics for a document import.
type ImportAction string

const (
	ImportActionCreate  ImportAction = "create"
	ImportActionUpsert  ImportAction = "upsert"
	ImportActionEmplace ImportAction = "emplace"
)

// importResult is one line of the JSONL import response.
type importResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
}

// ImportDocuments bulk-imports documents into a collection as JSONL. The
// caller is responsible for batching; this method sends everything it is
// given in one request. Any per-document failure fails the whole call.
func (c *Client) ImportDocuments(ctx context.Context, collection string, docs []domain.Document, action ImportAction) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode document for import: %w", err)
		}
	}

	path := "/collections/" + url.PathEscape(collection) + "/documents/import?action=" + string(action)
	req, err := c.newRequest(ctx, http.MethodPost, path, buf.Bytes())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("typesense import into %s: %w", collection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(resp, http.MethodPost, path)
	}

	// The import response is JSONL, one result per document.
	dec := json.NewDecoder(resp.Body)
	line := 0
	for dec.More() {
		var res importResult
		if err := dec.Decode(&res); err != nil {
			return fmt.Errorf("typesense import into %s: decode result line %d: %w", collection, line, err)
		}
		if !res.Success {
			return fmt.Errorf("typesense import into %s: document %d rejected: %s", collection, line, res.Error)
		}
		line++
	}

	return nil
}

// DeleteDocumentsByFilter deletes every document matching the filter
// expression and returns the number of documents removed.
func (c *Client) DeleteDocumentsByFilter(ctx context.Context, collection, filter string) (int64, error) {
	path := "/collections/" + url.PathEscape(collection) + "/documents?filter_by=" + url.QueryEscape(filter)

	var out struct {
		NumDeleted int64 `json:"num_deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return 0, err
	}
	return out.NumDeleted, nil
}
