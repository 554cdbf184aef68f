package postgres

import (
	"context"
	"fmt"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// Brands returns every manufacturer ordered by name.
func (r *CatalogRepository) Brands(ctx context.Context) ([]domain.BrandRow, error) {
	query := `
		SELECT manufacturers_id, manufacturers_name, manufacturers_image
		FROM manufacturers
		ORDER BY manufacturers_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	var brands []domain.BrandRow

	for rows.Next() {
		var b domain.BrandRow

		if err := rows.Scan(&b.ID, &b.Name, &b.Image); err != nil {
			return nil, fmt.Errorf("scan brand row: %w", err)
		}

		brands = append(brands, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brand rows: %w", err)
	}

	if brands == nil {
		brands = []domain.BrandRow{}
	}

	return brands, nil
}

// BrandProductCounts returns the number of active products per manufacturer.
func (r *CatalogRepository) BrandProductCounts(ctx context.Context) (map[int64]int32, error) {
	query := `
		SELECT manufacturers_id, COUNT(*)::int4
		FROM products
		WHERE products_status = 1 AND manufacturers_id IS NOT NULL
		GROUP BY manufacturers_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count products per brand: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int32)

	for rows.Next() {
		var brandID int64
		var count int32

		if err := rows.Scan(&brandID, &count); err != nil {
			return nil, fmt.Errorf("scan brand count row: %w", err)
		}

		counts[brandID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brand count rows: %w", err)
	}

	return counts, nil
}
