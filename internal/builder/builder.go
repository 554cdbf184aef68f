// Package builder turns relational catalog rows into the denormalized
// documents the search index consumes. Documents are derived data: they are
// rebuilt from the catalog on every sync and never stored authoritatively.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/internal/repository"
)

// maxCategoryDepth bounds the ancestor walk. Categories normally form a
// shallow tree, but the table is externally supplied data and a corrupted
// parent link must not hang the sync.
const maxCategoryDepth = 50

// Builder produces the three document streams from the catalog.
type Builder struct {
	catalog repository.CatalogRepository
	logger  *slog.Logger
	syncLog bool
}

// New creates a document builder. When syncLog is enabled each build step is
// logged at debug level.
func New(catalog repository.CatalogRepository, logger *slog.Logger, syncLog bool) *Builder {
	return &Builder{catalog: catalog, logger: logger, syncLog: syncLog}
}

func (b *Builder) debugLog(ctx context.Context, msg string, args ...any) {
	if b.syncLog {
		b.logger.DebugContext(ctx, msg, args...)
	}
}

// ProductDocuments builds product documents. A nil since builds the full set
// of active products; otherwise only products created or modified at or
// after the cut-off are built (incremental mode).
func (b *Builder) ProductDocuments(
	ctx context.Context,
	since *time.Time,
	languages []domain.Language,
	currencies []domain.Currency,
) ([]domain.Document, error) {
	var products []domain.ProductRow
	var err error

	if since == nil {
		products, err = b.catalog.ActiveProducts(ctx)
	} else {
		products, err = b.catalog.ProductsChangedSince(ctx, *since)
	}
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	b.debugLog(ctx, "building product documents",
		slog.Int("products", len(products)),
		slog.Int("languages", len(languages)),
		slog.Int("currencies", len(currencies)),
	)

	i18n := make(map[int32]map[int64]domain.ProductI18n, len(languages))
	categoryNames := make(map[int32]map[int64]string, len(languages))
	for _, lang := range languages {
		data, err := b.catalog.ProductI18nByLanguage(ctx, lang.ID)
		if err != nil {
			return nil, fmt.Errorf("load product data for language %s: %w", lang.Code, err)
		}
		i18n[lang.ID] = data

		names, err := b.catalog.CategoryNamesByLanguage(ctx, lang.ID)
		if err != nil {
			return nil, fmt.Errorf("load category names for language %s: %w", lang.Code, err)
		}
		categoryNames[lang.ID] = names
	}

	categories, err := b.catalog.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	parents := make(map[int64]int64, len(categories))
	for _, c := range categories {
		parents[c.ID] = c.ParentID
	}

	ratings, err := b.catalog.ProductRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load product ratings: %w", err)
	}

	docs := make([]domain.Document, 0, len(products))
	for _, p := range products {
		doc := domain.Document{
			"id":       strconv.FormatInt(p.ID, 10),
			"model":    p.Model,
			"price":    p.Price,
			"quantity": p.Quantity,
			"weight":   p.Weight,
			"rating":   ratings[p.ID],
		}
		if p.Image != nil {
			doc["image"] = *p.Image
		}
		if p.Manufacturer != nil {
			doc["manufacturer"] = *p.Manufacturer
		}
		if p.SortOrder != nil {
			doc["sort-order"] = *p.SortOrder
		}

		for _, lang := range languages {
			data := i18n[lang.ID][p.ID]
			doc["name_"+lang.Code] = data.Name
			doc["description_"+lang.Code] = data.Description
			doc["meta-keywords_"+lang.Code] = data.MetaKeywords
			doc["views_"+lang.Code] = data.Views
			doc["category_"+lang.Code] = categoryPath(p.MasterCategoryID, parents, categoryNames[lang.ID])
		}

		for _, cur := range currencies {
			doc["displayed-price_"+cur.Code] = DisplayPrice(p.Price, cur)
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// categoryPath walks the parent links from a category up to the root and
// returns the names joined by spaces, ordered root first. The walk is bounded
// and cycle-guarded because the category table is externally supplied.
func categoryPath(categoryID int64, parents map[int64]int64, names map[int64]string) string {
	visited := make(map[int64]bool, 8)
	var reversed []string

	for id := categoryID; id != 0 && len(visited) < maxCategoryDepth; {
		if visited[id] {
			break
		}
		visited[id] = true

		if name, ok := names[id]; ok && name != "" {
			reversed = append(reversed, name)
		}

		parent, ok := parents[id]
		if !ok {
			break
		}
		id = parent
	}

	// Reverse in place: the walk collected leaf to root.
	path := make([]byte, 0, 64)
	for i := len(reversed) - 1; i >= 0; i-- {
		if len(path) > 0 {
			path = append(path, ' ')
		}
		path = append(path, reversed[i]...)
	}
	return string(path)
}
