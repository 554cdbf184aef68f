package postgres

import (
	"context"
	"fmt"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// Categories returns every active category node.
func (r *CatalogRepository) Categories(ctx context.Context) ([]domain.CategoryRow, error) {
	query := `
		SELECT categories_id, parent_id, categories_image
		FROM categories
		WHERE categories_status = 1
		ORDER BY categories_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.CategoryRow

	for rows.Next() {
		var c domain.CategoryRow

		if err := rows.Scan(&c.ID, &c.ParentID, &c.Image); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}

		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	if categories == nil {
		categories = []domain.CategoryRow{}
	}

	return categories, nil
}

// CategoryNamesByLanguage returns category names keyed by category id.
func (r *CatalogRepository) CategoryNamesByLanguage(ctx context.Context, languageID int32) (map[int64]string, error) {
	query := `
		SELECT categories_id, categories_name
		FROM categories_description
		WHERE language_id = $1`

	rows, err := r.db.Query(ctx, query, languageID)
	if err != nil {
		return nil, fmt.Errorf("list category names for language %d: %w", languageID, err)
	}
	defer rows.Close()

	names := make(map[int64]string)

	for rows.Next() {
		var categoryID int64
		var name string

		if err := rows.Scan(&categoryID, &name); err != nil {
			return nil, fmt.Errorf("scan category name row: %w", err)
		}

		names[categoryID] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category name rows: %w", err)
	}

	return names, nil
}

// CategoryDirectProductCounts returns the number of directly linked active
// products per category id. Recursive roll-up happens in the builder.
func (r *CatalogRepository) CategoryDirectProductCounts(ctx context.Context) (map[int64]int32, error) {
	query := `
		SELECT ptc.categories_id, COUNT(*)::int4
		FROM products_to_categories ptc
		JOIN products p ON p.products_id = ptc.products_id
		WHERE p.products_status = 1
		GROUP BY ptc.categories_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count products per category: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int32)

	for rows.Next() {
		var categoryID int64
		var count int32

		if err := rows.Scan(&categoryID, &count); err != nil {
			return nil, fmt.Errorf("scan category count row: %w", err)
		}

		counts[categoryID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category count rows: %w", err)
	}

	return counts, nil
}

// Languages returns the configured storefront languages.
func (r *CatalogRepository) Languages(ctx context.Context) ([]domain.Language, error) {
	query := `
		SELECT languages_id, code, name
		FROM languages
		ORDER BY languages_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	defer rows.Close()

	var languages []domain.Language

	for rows.Next() {
		var l domain.Language

		if err := rows.Scan(&l.ID, &l.Code, &l.Name); err != nil {
			return nil, fmt.Errorf("scan language row: %w", err)
		}

		languages = append(languages, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate language rows: %w", err)
	}

	if languages == nil {
		languages = []domain.Language{}
	}

	return languages, nil
}

// Currencies returns the configured storefront currencies.
func (r *CatalogRepository) Currencies(ctx context.Context) ([]domain.Currency, error) {
	query := `
		SELECT code, title, symbol_left, symbol_right,
		       decimal_point, thousands_point, decimal_places, value
		FROM currencies
		ORDER BY code`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []domain.Currency

	for rows.Next() {
		var c domain.Currency

		if err := rows.Scan(
			&c.Code,
			&c.Title,
			&c.SymbolLeft,
			&c.SymbolRight,
			&c.DecimalPoint,
			&c.ThousandsPoint,
			&c.DecimalPlaces,
			&c.ExchangeRate,
		); err != nil {
			return nil, fmt.Errorf("scan currency row: %w", err)
		}

		currencies = append(currencies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate currency rows: %w", err)
	}

	if currencies == nil {
		currencies = []domain.Currency{}
	}

	return currencies, nil
}
