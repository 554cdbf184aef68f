package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marco-pm/zencart-typesense/internal/typesense"
	apperrors "github.com/marco-pm/zencart-typesense/pkg/errors"
)

const defaultLimit = 10

// Searcher is the slice of the Typesense client the provider needs.
type Searcher interface {
	MultiSearch(ctx context.Context, searches []typesense.SearchParams) ([]typesense.SearchResult, error)
}

// TypesenseProvider queries the three aliases in a single multi-search round
// trip. Aliases are resolved server-side, so queries always hit the live
// incarnation regardless of in-flight syncs.
type TypesenseProvider struct {
	ts               Searcher
	collectionPrefix string
}

// NewTypesenseProvider creates the Typesense-backed search provider.
func NewTypesenseProvider(ts Searcher, collectionPrefix string) *TypesenseProvider {
	return &TypesenseProvider{ts: ts, collectionPrefix: collectionPrefix}
}

func (p *TypesenseProvider) alias(base string) string {
	if p.collectionPrefix == "" {
		return base
	}
	return p.collectionPrefix + "_" + base
}

// Search fans the query out over products, categories, and brands. Any
// failed sub-search fails the whole query; sync state is never involved.
func (p *TypesenseProvider) Search(ctx context.Context, req Request) (*Response, error) {
	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	searches := []typesense.SearchParams{
		{
			Collection: p.alias("products"),
			Q:          req.Query,
			QueryBy: fmt.Sprintf("name_%s,model,manufacturer,category_%s,description_%s,meta-keywords_%s",
				lang, lang, lang, lang),
			QueryByWeights: "4,3,2,2,1,1",
			Infix:          "always",
			PerPage:        limitOrDefault(req.ProductsLimit),
		},
		{
			Collection: p.alias("categories"),
			Q:          req.Query,
			QueryBy:    "name_" + lang,
			Infix:      "always",
			PerPage:    limitOrDefault(req.CategoriesLimit),
		},
		{
			Collection: p.alias("brands"),
			Q:          req.Query,
			QueryBy:    "name",
			Infix:      "always",
			PerPage:    limitOrDefault(req.BrandsLimit),
		},
	}

	results, err := p.ts.MultiSearch(ctx, searches)
	if err != nil {
		return nil, apperrors.Upstream("typesense", err)
	}
	if len(results) != len(searches) {
		return nil, apperrors.Upstream("typesense",
			fmt.Errorf("expected %d search results, got %d", len(searches), len(results)))
	}

	for i, res := range results {
		if res.Failed() {
			return nil, apperrors.Upstream("typesense",
				fmt.Errorf("sub-search %s failed: %d %s", searches[i].Collection, res.Code, res.Error))
		}
	}

	return &Response{
		Products:   toResultSet(results[0]),
		Categories: toResultSet(results[1]),
		Brands:     toResultSet(results[2]),
	}, nil
}

func toResultSet(res typesense.SearchResult) ResultSet {
	set := ResultSet{Found: res.Found, Hits: make([]json.RawMessage, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		set.Hits = append(set.Hits, hit.Document)
	}
	return set
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
