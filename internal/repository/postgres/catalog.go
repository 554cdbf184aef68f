package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/pkg/database"
)

// CatalogRepository reads the shop's relational catalog tables. The catalog
// schema is owned by the shop application; this repository only selects from
// it and never writes.
type CatalogRepository struct {
	db database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(db database.DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const productColumns = `
	p.products_id, p.products_model, p.products_price, p.products_quantity,
	p.products_weight, p.products_image, m.manufacturers_name,
	p.products_sort_order, p.master_categories_id`

// ActiveProducts returns every active product with its manufacturer name.
func (r *CatalogRepository) ActiveProducts(ctx context.Context) ([]domain.ProductRow, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN manufacturers m ON m.manufacturers_id = p.manufacturers_id
		WHERE p.products_status = 1
		ORDER BY p.products_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// ProductsChangedSince returns active products created or modified at or
// after the cut-off timestamp.
func (r *CatalogRepository) ProductsChangedSince(ctx context.Context, since time.Time) ([]domain.ProductRow, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN manufacturers m ON m.manufacturers_id = p.manufacturers_id
		WHERE p.products_status = 1
		  AND (p.products_last_modified >= $1 OR p.products_date_added >= $1)
		ORDER BY p.products_id`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("list products changed since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]domain.ProductRow, error) {
	var products []domain.ProductRow

	for rows.Next() {
		var p domain.ProductRow

		if err := rows.Scan(
			&p.ID,
			&p.Model,
			&p.Price,
			&p.Quantity,
			&p.Weight,
			&p.Image,
			&p.Manufacturer,
			&p.SortOrder,
			&p.MasterCategoryID,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.ProductRow{}
	}

	return products, nil
}

// ProductI18nByLanguage returns per-language product data keyed by product id.
func (r *CatalogRepository) ProductI18nByLanguage(ctx context.Context, languageID int32) (map[int64]domain.ProductI18n, error) {
	query := `
		SELECT pd.products_id, pd.products_name, pd.products_description,
		       COALESCE(mt.metatags_keywords, ''), pd.products_viewed
		FROM products_description pd
		LEFT JOIN meta_tags_products_description mt
		       ON mt.products_id = pd.products_id AND mt.language_id = pd.language_id
		WHERE pd.language_id = $1`

	rows, err := r.db.Query(ctx, query, languageID)
	if err != nil {
		return nil, fmt.Errorf("list product i18n for language %d: %w", languageID, err)
	}
	defer rows.Close()

	i18n := make(map[int64]domain.ProductI18n)

	for rows.Next() {
		var productID int64
		var data domain.ProductI18n

		if err := rows.Scan(&productID, &data.Name, &data.Description, &data.MetaKeywords, &data.Views); err != nil {
			return nil, fmt.Errorf("scan product i18n row: %w", err)
		}

		i18n[productID] = data
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product i18n rows: %w", err)
	}

	return i18n, nil
}

// ProductRatings returns the mean approved review rating per product id.
func (r *CatalogRepository) ProductRatings(ctx context.Context) (map[int64]float64, error) {
	query := `
		SELECT products_id, AVG(reviews_rating)::float8
		FROM reviews
		WHERE status = 1
		GROUP BY products_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list product ratings: %w", err)
	}
	defer rows.Close()

	ratings := make(map[int64]float64)

	for rows.Next() {
		var productID int64
		var rating float64

		if err := rows.Scan(&productID, &rating); err != nil {
			return nil, fmt.Errorf("scan product rating row: %w", err)
		}

		ratings[productID] = rating
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rating rows: %w", err)
	}

	return ratings, nil
}
