package builder

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco-pm/zencart-typesense/internal/domain"
)

// fakeCatalog is an in-memory catalog snapshot.
type fakeCatalog struct {
	products      []domain.ProductRow
	changed       []domain.ProductRow
	changedSince  *time.Time
	i18n          map[int32]map[int64]domain.ProductI18n
	categories    []domain.CategoryRow
	categoryNames map[int32]map[int64]string
	directCounts  map[int64]int32
	brands        []domain.BrandRow
	brandCounts   map[int64]int32
	ratings       map[int64]float64
	languages     []domain.Language
	currencies    []domain.Currency
}

func (f *fakeCatalog) ActiveProducts(ctx context.Context) ([]domain.ProductRow, error) {
	return f.products, nil
}

func (f *fakeCatalog) ProductsChangedSince(ctx context.Context, since time.Time) ([]domain.ProductRow, error) {
	f.changedSince = &since
	return f.changed, nil
}

func (f *fakeCatalog) ProductI18nByLanguage(ctx context.Context, languageID int32) (map[int64]domain.ProductI18n, error) {
	return f.i18n[languageID], nil
}

func (f *fakeCatalog) Categories(ctx context.Context) ([]domain.CategoryRow, error) {
	return f.categories, nil
}

func (f *fakeCatalog) CategoryNamesByLanguage(ctx context.Context, languageID int32) (map[int64]string, error) {
	return f.categoryNames[languageID], nil
}

func (f *fakeCatalog) CategoryDirectProductCounts(ctx context.Context) (map[int64]int32, error) {
	return f.directCounts, nil
}

func (f *fakeCatalog) Brands(ctx context.Context) ([]domain.BrandRow, error) {
	return f.brands, nil
}

func (f *fakeCatalog) BrandProductCounts(ctx context.Context) (map[int64]int32, error) {
	return f.brandCounts, nil
}

func (f *fakeCatalog) ProductRatings(ctx context.Context) (map[int64]float64, error) {
	return f.ratings, nil
}

func (f *fakeCatalog) Languages(ctx context.Context) ([]domain.Language, error) {
	return f.languages, nil
}

func (f *fakeCatalog) Currencies(ctx context.Context) ([]domain.Currency, error) {
	return f.currencies, nil
}

func strPtr(s string) *string { return &s }
func int32Ptr(n int32) *int32 { return &n }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func usd() domain.Currency {
	return domain.Currency{
		Code: "USD", SymbolLeft: "$",
		DecimalPoint: ".", ThousandsPoint: ",",
		DecimalPlaces: 2, ExchangeRate: 1,
	}
}

func eur() domain.Currency {
	return domain.Currency{
		Code: "EUR", SymbolRight: " €",
		DecimalPoint: ",", ThousandsPoint: ".",
		DecimalPlaces: 2, ExchangeRate: 0.9,
	}
}

// newProductCatalog sets up a two-level category tree (Hardware 1 > Graphics
// Cards 4) with one product in the leaf.
func newProductCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: []domain.ProductRow{
			{
				ID: 12, Model: "MG200MMS", Price: 1000, Quantity: 32, Weight: 1.5,
				Image: strPtr("matrox/mg200mms.gif"), Manufacturer: strPtr("Matrox"),
				SortOrder: int32Ptr(10), MasterCategoryID: 4,
			},
		},
		changed: []domain.ProductRow{
			{ID: 13, Model: "MG400", MasterCategoryID: 4},
		},
		i18n: map[int32]map[int64]domain.ProductI18n{
			1: {12: {Name: "Matrox G200 MMS", Description: "Dual head", MetaKeywords: "graphics", Views: 210}},
			2: {12: {Name: "Matrox G200 MMS IT", Description: "Doppia testa", Views: 3}},
		},
		categories: []domain.CategoryRow{
			{ID: 1, ParentID: 0},
			{ID: 4, ParentID: 1},
		},
		categoryNames: map[int32]map[int64]string{
			1: {1: "Hardware", 4: "Graphics Cards"},
			2: {1: "Hardware IT", 4: "Schede Grafiche"},
		},
		ratings: map[int64]float64{12: 4.5},
		languages: []domain.Language{
			{ID: 1, Code: "en", Name: "English"},
			{ID: 2, Code: "it", Name: "Italiano"},
		},
		currencies: []domain.Currency{usd(), eur()},
	}
}

func TestProductDocuments_FullBuild(t *testing.T) {
	catalog := newProductCatalog()
	b := New(catalog, testLogger(), false)

	docs, err := b.ProductDocuments(context.Background(), nil, catalog.languages, catalog.currencies)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	doc := docs[0]

	assert.Equal(t, "12", doc["id"])
	assert.Equal(t, "MG200MMS", doc["model"])
	assert.Equal(t, 1000.0, doc["price"])
	assert.Equal(t, 4.5, doc["rating"])
	assert.Equal(t, "matrox/mg200mms.gif", doc["image"])
	assert.Equal(t, "Matrox", doc["manufacturer"])
	assert.Equal(t, int32(10), doc["sort-order"])

	assert.Equal(t, "Matrox G200 MMS", doc["name_en"])
	assert.Equal(t, "Dual head", doc["description_en"])
	assert.Equal(t, "graphics", doc["meta-keywords_en"])
	assert.Equal(t, int32(210), doc["views_en"])
	assert.Equal(t, "Matrox G200 MMS IT", doc["name_it"])

	// Ancestry path is root first.
	assert.Equal(t, "Hardware Graphics Cards", doc["category_en"])
	assert.Equal(t, "Hardware IT Schede Grafiche", doc["category_it"])

	assert.Equal(t, "$1,000.00", doc["displayed-price_USD"])
	assert.Equal(t, "900,00 €", doc["displayed-price_EUR"])
}

func TestProductDocuments_OptionalFieldsOmitted(t *testing.T) {
	catalog := newProductCatalog()
	catalog.products = []domain.ProductRow{{ID: 20, Model: "BARE", MasterCategoryID: 0}}
	b := New(catalog, testLogger(), false)

	docs, err := b.ProductDocuments(context.Background(), nil, catalog.languages, catalog.currencies)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	doc := docs[0]

	assert.NotContains(t, doc, "image")
	assert.NotContains(t, doc, "manufacturer")
	assert.NotContains(t, doc, "sort-order")
	assert.Equal(t, 0.0, doc["rating"])
	assert.Equal(t, "", doc["category_en"])
}

func TestProductDocuments_IncrementalUsesCutoff(t *testing.T) {
	catalog := newProductCatalog()
	b := New(catalog, testLogger(), false)
	since := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	docs, err := b.ProductDocuments(context.Background(), &since, catalog.languages, catalog.currencies)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "13", docs[0]["id"])
	require.NotNil(t, catalog.changedSince)
	assert.Equal(t, since, *catalog.changedSince)
}

func TestCategoryPath_CycleGuard(t *testing.T) {
	// 4 -> 1 -> 4 is corrupted source data; the walk must terminate.
	parents := map[int64]int64{4: 1, 1: 4}
	names := map[int64]string{1: "A", 4: "B"}

	path := categoryPath(4, parents, names)

	assert.Equal(t, "A B", path)
}

func TestCategoryDocuments_RecursiveCounts(t *testing.T) {
	catalog := newProductCatalog()
	catalog.categories = []domain.CategoryRow{
		{ID: 1, ParentID: 0, Image: strPtr("categories/hardware.gif")},
		{ID: 4, ParentID: 1},
		{ID: 9, ParentID: 4},
	}
	catalog.directCounts = map[int64]int32{1: 2, 4: 6, 9: 1}
	b := New(catalog, testLogger(), false)

	docs, err := b.CategoryDocuments(context.Background(), catalog.languages[:1])

	require.NoError(t, err)
	require.Len(t, docs, 3)

	byID := make(map[string]domain.Document, len(docs))
	for _, doc := range docs {
		byID[doc["id"].(string)] = doc
	}

	// Root counts its whole subtree, the leaf only itself.
	assert.Equal(t, int32(9), byID["1"]["products-count"])
	assert.Equal(t, int32(7), byID["4"]["products-count"])
	assert.Equal(t, int32(1), byID["9"]["products-count"])
	assert.Equal(t, "categories/hardware.gif", byID["1"]["image"])
	assert.Equal(t, "Hardware", byID["1"]["name_en"])
}

func TestBrandDocuments(t *testing.T) {
	catalog := newProductCatalog()
	catalog.brands = []domain.BrandRow{
		{ID: 1, Name: "Matrox", Image: strPtr("manufacturers/matrox.gif")},
		{ID: 2, Name: "Fox"},
	}
	catalog.brandCounts = map[int64]int32{1: 8}
	b := New(catalog, testLogger(), false)

	docs, err := b.BrandDocuments(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[0]["id"])
	assert.Equal(t, "Matrox", docs[0]["name"])
	assert.Equal(t, int32(8), docs[0]["products-count"])
	assert.Equal(t, "manufacturers/matrox.gif", docs[0]["image"])
	assert.Equal(t, int32(0), docs[1]["products-count"])
	assert.NotContains(t, docs[1], "image")
}

func TestDisplayPrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		cur   domain.Currency
		want  string
	}{
		{"usd grouping", 1234.5, usd(), "$1,234.50"},
		{"usd rounding", 9.999, usd(), "$10.00"},
		{"half rounds away from zero", 0.125, usd(), "$0.13"},
		{"half rounds away from zero at integer", 2.5, domain.Currency{Code: "JPY", SymbolLeft: "¥", ThousandsPoint: ",", DecimalPlaces: 0, ExchangeRate: 1}, "¥3"},
		{"eur conversion", 1000, eur(), "900,00 €"},
		{"negative", -5.25, usd(), "$-5.25"},
		{"zero decimals", 1234.56, domain.Currency{Code: "JPY", SymbolLeft: "¥", ThousandsPoint: ",", DecimalPlaces: 0, ExchangeRate: 1}, "¥1,235"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayPrice(tt.price, tt.cur))
		})
	}
}
