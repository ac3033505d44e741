package importer

import "strings"

// Field identifies a canonical spreadsheet column
type Field string

const (
	FieldProductID    Field = "productId"
	FieldName         Field = "name"
	FieldDescription  Field = "description"
	FieldPrice        Field = "price"
	FieldGst          Field = "gst"
	FieldStock        Field = "stockQuantity"
	FieldUnit         Field = "unit"
	FieldCategoryID   Field = "categoryId"
	FieldCategoryName Field = "categoryName"
	FieldImages       Field = "images"
)

// Column defines one canonical template column and the header spellings it is
// recognized under. Synonym matching is case-insensitive; a trailing " *"
// required-marker from generated templates is stripped before matching.
type Column struct {
	Field       Field
	Header      string
	Synonyms    []string
	Description string
	Required    bool
	Example     string
}

// Columns returns the canonical column set, in template order
func Columns() []Column {
	return []Column{
		{Field: FieldProductID, Header: "productId", Synonyms: []string{"id", "product_id"},
			Description: "Existing product UUID - fill to update instead of create", Example: ""},
		{Field: FieldName, Header: "name", Synonyms: []string{"productname", "product_name", "title"},
			Description: "Product name (max 100 characters)", Required: true, Example: "Alphonso Mango"},
		{Field: FieldDescription, Header: "description", Synonyms: []string{"desc", "details"},
			Description: "Product description (max 1000 characters)", Example: "Farm fresh, naturally ripened"},
		{Field: FieldPrice, Header: "price", Synonyms: []string{"rate", "sellingprice", "selling_price"},
			Description: "Selling price, must be > 0", Required: true, Example: "120"},
		{Field: FieldGst, Header: "gst", Synonyms: []string{"gstrate", "gst_rate", "tax", "taxrate"},
			Description: "GST rate percent in [0,100], defaults to 0", Example: "5"},
		{Field: FieldStock, Header: "stockQuantity", Synonyms: []string{"stock", "quantity", "qty", "stock_quantity"},
			Description: "Stock on hand, must be >= 0", Required: true, Example: "50"},
		{Field: FieldUnit, Header: "unit", Synonyms: []string{"uom", "unitofmeasure"},
			Description: "One of: kg, g, liters, ml, pcs, box, dozen", Required: true, Example: "kg"},
		{Field: FieldCategoryID, Header: "categoryId", Synonyms: []string{"category_id", "categoryuuid"},
			Description: "Category UUID (use this OR categoryName)", Example: ""},
		{Field: FieldCategoryName, Header: "categoryName", Synonyms: []string{"category", "category_name"},
			Description: "Category name, matched case-insensitively (use this OR categoryId)", Example: "Fruits"},
		{Field: FieldImages, Header: "images", Synonyms: []string{"imageurls", "image_urls", "photos"},
			Description: "Image URLs separated by comma or |", Example: ""},
	}
}

// normalizeHeader reduces a raw header cell to a comparison key: the
// required-marker suffix emitted by generated templates is stripped, then
// case, spaces, underscores and hyphens are discarded so "Stock Quantity",
// "stock_quantity" and "stockQuantity" all collapse to the same key
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimSuffix(h, "*")
	h = strings.ToLower(h)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '-':
			return -1
		}
		return r
	}, h)
}

// resolveColumns maps a header row onto canonical fields, returning a
// column-index -> field table. Unrecognized headers are ignored.
func resolveColumns(headers []string) map[int]Field {
	lookup := make(map[string]Field)
	for _, col := range Columns() {
		lookup[normalizeHeader(col.Header)] = col.Field
		lookup[normalizeHeader(string(col.Field))] = col.Field
		for _, syn := range col.Synonyms {
			lookup[normalizeHeader(syn)] = col.Field
		}
	}

	resolved := make(map[int]Field)
	for i, raw := range headers {
		if field, ok := lookup[normalizeHeader(raw)]; ok {
			resolved[i] = field
		}
	}
	return resolved
}
