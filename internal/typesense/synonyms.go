package typesense

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// UpsertSynonym creates or replaces a synonym on a collection.
func (c *Client) UpsertSynonym(ctx context.Context, collection string, syn domain.Synonym) error {
	body, err := json.Marshal(struct {
		Root     string   `json:"root,omitempty"`
		Synonyms []string `json:"synonyms"`
	}{Root: syn.Root, Synonyms: syn.Synonyms})
	if err != nil {
		return fmt.Errorf("marshal synonym: %w", err)
	}

	path := "/collections/" + url.PathEscape(collection) + "/synonyms/" + url.PathEscape(syn.ID)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

// ListSynonyms returns all synonyms defined on a collection.
func (c *Client) ListSynonyms(ctx context.Context, collection string) ([]domain.Synonym, error) {
	var out struct {
		Synonyms []domain.Synonym `json:"synonyms"`
	}
	path := "/collections/" + url.PathEscape(collection) + "/synonyms"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Synonyms, nil
}

// DeleteSynonym removes a synonym from a collection.
func (c *Client) DeleteSynonym(ctx context.Context, collection, id string) error {
	path := "/collections/" + url.PathEscape(collection) + "/synonyms/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
