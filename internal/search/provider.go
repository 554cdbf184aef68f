// Package search defines the pluggable search-provider boundary. The sync
// engine keeps a Typesense index current; this package exposes querying it
// behind an interface so the host system can select a provider by
// configuration.
package search

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request is an instant-search query fanned out over the three collections.
type Request struct {
	Query           string
	Language        string
	ProductsLimit   int
	CategoriesLimit int
	BrandsLimit     int
}

// ResultSet is the outcome of one sub-search.
type ResultSet struct {
	Found int               `json:"found"`
	Hits  []json.RawMessage `json:"hits"`
}

// Response aggregates the three sub-search results.
type Response struct {
	Products   ResultSet `json:"products"`
	Categories ResultSet `json:"categories"`
	Brands     ResultSet `json:"brands"`
}

// Provider executes instant-search queries against a search backend.
type Provider interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

// NewProvider selects a provider implementation by name. Only "typesense" is
// implemented here; the interface exists so the host can plug in others.
func NewProvider(name string, searcher Searcher, collectionPrefix string) (Provider, error) {
	switch name {
	case "typesense", "":
		return NewTypesenseProvider(searcher, collectionPrefix), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", name)
	}
}
