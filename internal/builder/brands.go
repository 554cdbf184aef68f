package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// BrandDocuments builds one document per manufacturer with its active
// product count.
func (b *Builder) BrandDocuments(ctx context.Context) ([]domain.Document, error) {
	brands, err := b.catalog.Brands(ctx)
	if err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}

	b.debugLog(ctx, "building brand documents", slog.Int("brands", len(brands)))

	counts, err := b.catalog.BrandProductCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load brand product counts: %w", err)
	}

	docs := make([]domain.Document, 0, len(brands))
	for _, brand := range brands {
		doc := domain.Document{
			"id":             strconv.FormatInt(brand.ID, 10),
			"name":           brand.Name,
			"products-count": counts[brand.ID],
		}
		if brand.Image != nil {
			doc["image"] = *brand.Image
		}

		docs = append(docs, doc)
	}

	return docs, nil
}
