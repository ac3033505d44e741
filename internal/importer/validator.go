package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/models"
)

// CategoryLookup resolves produce categories by id or by exact
// case-insensitive name
type CategoryLookup interface {
	FindCategoryByID(ctx context.Context, id string) (*models.Category, error)
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
}

// ProductLookup checks update-intent rows against the production catalog
type ProductLookup interface {
	GetProductByID(ctx context.Context, supplierID string, id uuid.UUID) (*models.Product, error)
}

// Validator normalizes and validates one row against the catalog business
// rules. It never fails a batch: every violation is accumulated on the row so
// an invalid row can still be displayed and edited.
type Validator struct {
	categories CategoryLookup
	products   ProductLookup
	logger     *logrus.Entry
}

// NewValidator creates a row validator
func NewValidator(categories CategoryLookup, products ProductLookup, logger *logrus.Logger) *Validator {
	return &Validator{
		categories: categories,
		products:   products,
		logger:     logger.WithField("component", "row-validator"),
	}
}

// Validate coerces a raw spreadsheet row into a staged row and runs every
// business check. All checks are evaluated; nothing short-circuits.
func (v *Validator) Validate(ctx context.Context, raw RawRow, supplierID string) *models.StagedRow {
	row := &models.StagedRow{
		SupplierID: supplierID,
		RowIndex:   raw.Index,
		Name:       raw.Get(FieldName),
		Unit:       raw.Get(FieldUnit),
		Images:     models.ImageList{},
		Errors:     models.StringList{},
		Status:     models.RowStatusPending,
	}

	if desc := raw.Get(FieldDescription); desc != "" {
		row.Description = &desc
	}

	// Numeric coercion is best-effort: a malformed cell leaves the zero value
	// in place and the corresponding check reports it.
	var coerceErrs []string
	if cell := raw.Get(FieldPrice); cell != "" {
		if price, err := strconv.ParseFloat(cell, 64); err == nil {
			row.Price = price
		} else {
			coerceErrs = append(coerceErrs, "price must be a number")
		}
	} else {
		coerceErrs = append(coerceErrs, "price is required")
	}
	if cell := raw.Get(FieldStock); cell != "" {
		if qty, err := strconv.ParseFloat(cell, 64); err == nil {
			row.StockQuantity = int(qty)
		} else {
			coerceErrs = append(coerceErrs, "stock quantity must be a number")
		}
	} else {
		coerceErrs = append(coerceErrs, "stock quantity is required")
	}
	if cell := raw.Get(FieldGst); cell != "" {
		if gst, err := strconv.ParseFloat(cell, 64); err == nil {
			row.GstRate = gst
		} else {
			coerceErrs = append(coerceErrs, "gst rate must be a number")
		}
	}

	if id := raw.Get(FieldCategoryID); id != "" {
		row.CategoryID = &id
	}
	if name := raw.Get(FieldCategoryName); name != "" {
		row.CategoryName = &name
	}

	for _, url := range SplitImageCell(raw.Get(FieldImages)) {
		row.Images = append(row.Images, models.StagedImage{URL: url, IsMain: len(row.Images) == 0})
	}

	if cell := raw.Get(FieldProductID); cell != "" {
		if id, err := uuid.Parse(cell); err == nil {
			row.IsUpdate = true
			row.ProductID = &id
		} else {
			coerceErrs = append(coerceErrs, "productId is not a valid identifier")
		}
	}

	v.check(ctx, row)
	// Coercion problems supersede the zero-value checks they caused
	row.Errors = mergeErrors(coerceErrs, row.Errors)
	v.finalize(row)
	return row
}

// Revalidate re-runs every business check against an already-staged row,
// typically after an operator edit. The row's status and error list are
// replaced with the fresh result.
func (v *Validator) Revalidate(ctx context.Context, row *models.StagedRow) {
	row.Errors = models.StringList{}
	v.check(ctx, row)
	v.finalize(row)
}

func (v *Validator) finalize(row *models.StagedRow) {
	if len(row.Errors) == 0 {
		row.Status = models.RowStatusValid
	} else {
		row.Status = models.RowStatusInvalid
	}
}

// check runs every rule against the typed fields, appending one message per
// violation. Checks never abort early.
func (v *Validator) check(ctx context.Context, row *models.StagedRow) {
	addErr := func(format string, args ...interface{}) {
		row.Errors = append(row.Errors, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(row.Name) == "" {
		addErr("name is required")
	} else if utf8.RuneCountInString(row.Name) > models.MaxNameLength {
		addErr("name must be at most %d characters", models.MaxNameLength)
	}

	if row.Price <= 0 {
		addErr("price must be greater than 0")
	} else if row.Price > models.MaxPrice {
		addErr("price must be at most %d", models.MaxPrice)
	}

	if row.StockQuantity < 0 {
		addErr("stock quantity cannot be negative")
	} else if row.StockQuantity > models.MaxStockQuantity {
		addErr("stock quantity must be at most %d", models.MaxStockQuantity)
	}

	if row.Unit == "" {
		addErr("unit is required")
	} else if !models.IsAllowedUnit(row.Unit) {
		addErr("unit must be one of: %s", strings.Join(models.AllowedUnits, ", "))
	}

	if row.GstRate < 0 || row.GstRate > 100 {
		addErr("gst rate must be between 0 and 100")
	}

	v.resolveCategory(ctx, row, addErr)

	if row.DiscountedPrice != nil && *row.DiscountedPrice > row.Price {
		addErr("discounted price cannot exceed price")
	}

	if row.Description != nil && utf8.RuneCountInString(*row.Description) > models.MaxDescriptionLength {
		addErr("description must be at most %d characters", models.MaxDescriptionLength)
	}

	if len(row.Images) > models.MaxRowImages {
		addErr("at most %d images are allowed per product", models.MaxRowImages)
	}

	if row.IsUpdate && row.ProductID != nil {
		if _, err := v.products.GetProductByID(ctx, row.SupplierID, *row.ProductID); err != nil {
			addErr("product %s not found or doesn't belong to this supplier", row.ProductID.String())
		}
	}
}

// resolveCategory validates the category reference and keeps both sides of it
// consistent: resolving the id populates the name and vice versa. The id wins
// when both are present (pre-filled update templates carry both).
func (v *Validator) resolveCategory(ctx context.Context, row *models.StagedRow, addErr func(string, ...interface{})) {
	switch {
	case row.CategoryID != nil && *row.CategoryID != "":
		category, err := v.categories.FindCategoryByID(ctx, *row.CategoryID)
		if err != nil {
			addErr("category %s not found", *row.CategoryID)
			return
		}
		name := category.Name
		row.CategoryName = &name
	case row.CategoryName != nil && *row.CategoryName != "":
		category, err := v.categories.FindCategoryByName(ctx, *row.CategoryName)
		if err != nil {
			addErr("category %q not found", *row.CategoryName)
			return
		}
		id := category.ID.String()
		row.CategoryID = &id
		row.CategoryName = &category.Name
	default:
		addErr("either categoryId or categoryName is required")
	}
}

// mergeErrors prepends coercion messages and drops the zero-value messages
// they made redundant
func mergeErrors(coerce []string, checks models.StringList) models.StringList {
	if len(coerce) == 0 {
		return checks
	}
	redundant := map[string]bool{}
	for _, c := range coerce {
		switch {
		case strings.HasPrefix(c, "price"):
			redundant["price must be greater than 0"] = true
		case strings.HasPrefix(c, "stock"):
			redundant["stock quantity cannot be negative"] = true
		}
	}
	merged := make(models.StringList, 0, len(coerce)+len(checks))
	merged = append(merged, coerce...)
	for _, e := range checks {
		if !redundant[e] {
			merged = append(merged, e)
		}
	}
	return merged
}
