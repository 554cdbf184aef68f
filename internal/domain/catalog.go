package domain

// ProductRow is the language-independent slice of a catalog product.
type ProductRow struct {
	ID               int64
	Model            string
	Price            float64
	Quantity         float64
	Weight           float64
	Image            *string
	Manufacturer     *string
	SortOrder        *int32
	MasterCategoryID int64
}

// ProductI18n holds the per-language attributes of a product.
type ProductI18n struct {
	Name         string
	Description  string
	MetaKeywords string
	Views        int32
}

// CategoryRow is a catalog category node. ParentID is 0 for root categories.
type CategoryRow struct {
	ID       int64
	ParentID int64
	Image    *string
}

// BrandRow is a catalog manufacturer.
type BrandRow struct {
	ID    int64
	Name  string
	Image *string
}

// Language is a storefront language the index fans documents out over.
type Language struct {
	ID   int32
	Code string
	Name string
}

// Currency describes how a displayed price is computed and formatted for one
// storefront currency.
type Currency struct {
	Code           string
	Title          string
	SymbolLeft     string
	SymbolRight    string
	DecimalPoint   string
	ThousandsPoint string
	DecimalPlaces  int32
	ExchangeRate   float64
}
