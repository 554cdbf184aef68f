package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// CategoryDocuments builds one document per active category with its
// recursive active-product count.
func (b *Builder) CategoryDocuments(ctx context.Context, languages []domain.Language) ([]domain.Document, error) {
	categories, err := b.catalog.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	b.debugLog(ctx, "building category documents",
		slog.Int("categories", len(categories)),
		slog.Int("languages", len(languages)),
	)

	names := make(map[int32]map[int64]string, len(languages))
	for _, lang := range languages {
		n, err := b.catalog.CategoryNamesByLanguage(ctx, lang.ID)
		if err != nil {
			return nil, fmt.Errorf("load category names for language %s: %w", lang.Code, err)
		}
		names[lang.ID] = n
	}

	direct, err := b.catalog.CategoryDirectProductCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category product counts: %w", err)
	}

	children := make(map[int64][]int64, len(categories))
	for _, c := range categories {
		children[c.ParentID] = append(children[c.ParentID], c.ID)
	}

	docs := make([]domain.Document, 0, len(categories))
	for _, c := range categories {
		doc := domain.Document{
			"id":             strconv.FormatInt(c.ID, 10),
			"products-count": recursiveProductCount(c.ID, children, direct, make(map[int64]bool, 8)),
		}
		if c.Image != nil {
			doc["image"] = *c.Image
		}
		for _, lang := range languages {
			doc["name_"+lang.Code] = names[lang.ID][c.ID]
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// recursiveProductCount sums a category's direct active-product count with
// the counts of its whole subtree. Categories form a tree by construction,
// but the visited set guards against accidental cycles in the source data.
func recursiveProductCount(id int64, children map[int64][]int64, direct map[int64]int32, visited map[int64]bool) int32 {
	if visited[id] {
		return 0
	}
	visited[id] = true

	count := direct[id]
	for _, child := range children[id] {
		count += recursiveProductCount(child, children, direct, visited)
	}
	return count
}
