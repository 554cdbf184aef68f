package collection

import (
	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/internal/typesense"
)

func noIndex() *bool {
	v := false
	return &v
}

// ProductFields generates the products collection schema fields. Searchable
// text fields carry per-language variants and display prices one variant per
// currency.
func ProductFields(languages []domain.Language, currencies []domain.Currency) []typesense.Field {
	fields := []typesense.Field{
		{Name: "model", Type: "string", Infix: true},
		{Name: "price", Type: "float", Optional: true, Index: noIndex()},
		{Name: "quantity", Type: "float", Optional: true, Index: noIndex()},
		{Name: "weight", Type: "float", Optional: true, Index: noIndex()},
		{Name: "image", Type: "string", Optional: true, Index: noIndex()},
		{Name: "manufacturer", Type: "string", Optional: true, Infix: true},
		{Name: "sort-order", Type: "int32", Optional: true},
		{Name: "rating", Type: "float", Optional: true, Index: noIndex()},
	}

	for _, lang := range languages {
		fields = append(fields,
			typesense.Field{Name: "name_" + lang.Code, Type: "string", Infix: true},
			typesense.Field{Name: "description_" + lang.Code, Type: "string", Infix: true},
			typesense.Field{Name: "meta-keywords_" + lang.Code, Type: "string", Infix: true},
			typesense.Field{Name: "views_" + lang.Code, Type: "int32", Optional: true},
			typesense.Field{Name: "category_" + lang.Code, Type: "string", Infix: true},
		)
	}

	for _, cur := range currencies {
		fields = append(fields, typesense.Field{
			Name: "displayed-price_" + cur.Code, Type: "string", Optional: true, Index: noIndex(),
		})
	}

	return fields
}

// CategoryFields generates the categories collection schema fields.
func CategoryFields(languages []domain.Language) []typesense.Field {
	fields := []typesense.Field{
		{Name: "image", Type: "string", Optional: true, Index: noIndex()},
		{Name: "products-count", Type: "int32", Optional: true, Index: noIndex()},
	}

	for _, lang := range languages {
		fields = append(fields, typesense.Field{
			Name: "name_" + lang.Code, Type: "string", Sort: true, Infix: true,
		})
	}

	return fields
}

// BrandFields generates the brands collection schema fields.
func BrandFields() []typesense.Field {
	return []typesense.Field{
		{Name: "name", Type: "string", Sort: true, Infix: true},
		{Name: "image", Type: "string", Optional: true, Index: noIndex()},
		{Name: "products-count", Type: "int32", Optional: true, Index: noIndex()},
	}
}
