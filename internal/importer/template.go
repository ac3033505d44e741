package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalog-service/internal/models"
)

// TemplateMode selects between an empty upload template and one pre-filled
// with the supplier's current catalog
type TemplateMode string

const (
	// TemplateModeNew produces the canonical header row only
	TemplateModeNew TemplateMode = "new"
	// TemplateModeOld additionally emits one row per existing product, each
	// carrying the product's id so a re-upload is recognized as an update
	TemplateModeOld TemplateMode = "old"
)

// TemplateSource provides the catalog data a pre-filled template needs
type TemplateSource interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListAllSupplierProducts(ctx context.Context, supplierID string) ([]models.Product, error)
}

// TemplateGenerator produces downloadable upload templates consistent with
// the parser's expected columns
type TemplateGenerator struct {
	source TemplateSource
}

// NewTemplateGenerator creates a template generator
func NewTemplateGenerator(source TemplateSource) *TemplateGenerator {
	return &TemplateGenerator{source: source}
}

const templateSheet = "Products"

// Generate builds the upload template workbook. A supplier with zero products
// still gets a header-only file in old mode.
func (g *TemplateGenerator) Generate(ctx context.Context, mode TemplateMode, supplierID string) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", templateSheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	columns := Columns()
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		header := col.Header
		if col.Required {
			header += " *"
		}
		f.SetCellValue(templateSheet, cell, header)
		if col.Required {
			f.SetCellStyle(templateSheet, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(templateSheet, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(templateSheet, colName, colName, 20)
	}

	categories, err := g.source.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories for template: %w", err)
	}
	if err := g.addConstraints(f, categories); err != nil {
		return nil, err
	}
	g.addInstructionsSheet(f, columns)

	if mode == TemplateModeOld {
		if err := g.fillCatalogRows(ctx, f, supplierID); err != nil {
			return nil, err
		}
	}

	idx, _ := f.GetSheetIndex(templateSheet)
	f.SetActiveSheet(idx)
	return f, nil
}

// addConstraints attaches the inline cell validations: unit drop-list, gst
// range, category name drop-list
func (g *TemplateGenerator) addConstraints(f *excelize.File, categories []models.Category) error {
	unitCol, gstCol, categoryCol := g.columnLetters()

	unitDV := excelize.NewDataValidation(true)
	unitDV.Sqref = fmt.Sprintf("%s2:%s10000", unitCol, unitCol)
	if err := unitDV.SetDropList(models.AllowedUnits); err != nil {
		return fmt.Errorf("failed to build unit constraint: %w", err)
	}
	unitDV.SetError(excelize.DataValidationErrorStyleStop, "Invalid unit",
		"Unit must be one of: "+strings.Join(models.AllowedUnits, ", "))
	if err := f.AddDataValidation(templateSheet, unitDV); err != nil {
		return err
	}

	gstDV := excelize.NewDataValidation(true)
	gstDV.Sqref = fmt.Sprintf("%s2:%s10000", gstCol, gstCol)
	if err := gstDV.SetRange(0.0, 100.0, excelize.DataValidationTypeDecimal, excelize.DataValidationOperatorBetween); err != nil {
		return fmt.Errorf("failed to build gst constraint: %w", err)
	}
	gstDV.SetError(excelize.DataValidationErrorStyleStop, "Invalid GST rate", "GST rate must lie in [0,100]")
	if err := f.AddDataValidation(templateSheet, gstDV); err != nil {
		return err
	}

	if len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, c.Name)
		}
		categoryDV := excelize.NewDataValidation(true)
		categoryDV.Sqref = fmt.Sprintf("%s2:%s10000", categoryCol, categoryCol)
		// Excel caps an inline drop-list at 255 characters; beyond that the
		// list is omitted and the parser-side lookup stays authoritative.
		if joined := strings.Join(names, ","); len(joined) <= 255 {
			if err := categoryDV.SetDropList(names); err == nil {
				if err := f.AddDataValidation(templateSheet, categoryDV); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// fillCatalogRows writes one row per existing product so the next upload
// round-trips as updates
func (g *TemplateGenerator) fillCatalogRows(ctx context.Context, f *excelize.File, supplierID string) error {
	products, err := g.source.ListAllSupplierProducts(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("failed to list supplier products for template: %w", err)
	}

	categoryNames := make(map[string]string)
	if categories, err := g.source.ListCategories(ctx); err == nil {
		for _, c := range categories {
			categoryNames[c.ID.String()] = c.Name
		}
	}

	for i, p := range products {
		rowNum := i + 2
		desc := ""
		if p.Description != nil {
			desc = *p.Description
		}
		categoryName := categoryNames[p.CategoryID]
		urls := make([]string, 0, len(p.Images))
		for _, img := range p.Images {
			urls = append(urls, img.URL)
		}

		values := []interface{}{
			p.ID.String(),
			p.Name,
			desc,
			p.Price,
			p.GstRate,
			p.StockQuantity,
			p.Unit,
			p.CategoryID,
			categoryName,
			strings.Join(urls, ","),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			f.SetCellValue(templateSheet, cell, value)
		}
	}
	return nil
}

// addInstructionsSheet mirrors the column definitions into a human-readable
// guidance sheet
func (g *TemplateGenerator) addInstructionsSheet(f *excelize.File, columns []Column) {
	const sheet = "Instructions"
	f.NewSheet(sheet)
	f.SetCellValue(sheet, "A1", "Catalog Upload Instructions")

	f.SetCellValue(sheet, "A3", "HOW UPDATES WORK:")
	f.SetCellValue(sheet, "A4", "Rows with a productId update that product; rows without one create a new product.")
	f.SetCellValue(sheet, "A5", "Download the pre-filled template to edit your current catalog in place.")
	f.SetCellValue(sheet, "A6", "For the category, fill EITHER categoryId OR categoryName; names are matched ignoring case.")

	f.SetCellValue(sheet, "A8", "Column Definitions:")
	f.SetCellValue(sheet, "A9", "Column")
	f.SetCellValue(sheet, "B9", "Description")
	f.SetCellValue(sheet, "C9", "Required")
	f.SetCellValue(sheet, "D9", "Example")

	for i, col := range columns {
		row := i + 10
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), col.Header)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), required)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), col.Example)
	}

	f.SetColWidth(sheet, "A", "A", 25)
	f.SetColWidth(sheet, "B", "B", 60)
	f.SetColWidth(sheet, "C", "C", 15)
	f.SetColWidth(sheet, "D", "D", 40)
}

// columnLetters returns the sheet letters of the constrained columns,
// derived from the canonical column order
func (g *TemplateGenerator) columnLetters() (unit, gst, categoryName string) {
	for i, col := range Columns() {
		letter, _ := excelize.ColumnNumberToName(i + 1)
		switch col.Field {
		case FieldUnit:
			unit = letter
		case FieldGst:
			gst = letter
		case FieldCategoryName:
			categoryName = letter
		}
	}
	return unit, gst, categoryName
}
