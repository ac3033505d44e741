package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RowStatus represents the validation/commit state of a staged row
type RowStatus string

const (
	RowStatusPending RowStatus = "PENDING"
	RowStatusValid   RowStatus = "VALID"
	RowStatusInvalid RowStatus = "INVALID"
	RowStatusFailed  RowStatus = "FAILED"
)

// StagedImage is one entry in a staged row's image gallery.
// At most one image carries IsMain at any time.
type StagedImage struct {
	URL         string `json:"url"`
	ExternalRef string `json:"externalRef,omitempty"`
	IsMain      bool   `json:"isMain"`
}

// ImageList is stored as a JSONB column
type ImageList []StagedImage

func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		l = ImageList{}
	}
	return json.Marshal(l)
}

func (l *ImageList) Scan(value interface{}) error {
	if value == nil {
		*l = ImageList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// StringList is stored as a JSONB column (validation error messages)
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// StagedRow holds one parsed spreadsheet line for a supplier, awaiting review
// and commit. RowIndex is the 1-based data row number in the uploaded file
// (header excluded) so errors can be correlated back to the spreadsheet.
type StagedRow struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID      string     `json:"supplierId" gorm:"not null;index:idx_staged_rows_supplier;index:idx_staged_rows_supplier_row,unique"`
	RowIndex        int        `json:"rowIndex" gorm:"not null;index:idx_staged_rows_supplier_row,unique"`
	Name            string     `json:"name"`
	Description     *string    `json:"description,omitempty"`
	Price           float64    `json:"price"`
	DiscountedPrice *float64   `json:"discountedPrice,omitempty"`
	GstRate         float64    `json:"gstRate"`
	StockQuantity   int        `json:"stockQuantity"`
	Unit            string     `json:"unit"`
	CategoryID      *string    `json:"categoryId,omitempty"`
	CategoryName    *string    `json:"categoryName,omitempty"`
	Images          ImageList  `json:"images" gorm:"type:jsonb"`
	IsUpdate        bool       `json:"isUpdate"`
	ProductID       *uuid.UUID `json:"productId,omitempty" gorm:"type:uuid"`
	Errors          StringList `json:"errors" gorm:"type:jsonb"`
	Status          RowStatus  `json:"status" gorm:"not null;default:'PENDING';index:idx_staged_rows_supplier_status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TableName returns the table name for the StagedRow model
func (StagedRow) TableName() string {
	return "staged_rows"
}

// IsValid reports whether the most recent validation run found no errors
func (r *StagedRow) IsValid() bool {
	return len(r.Errors) == 0
}

// PrependImages inserts images at the front of the gallery, preserving their
// relative order. If the row had no images before, the first appended image
// becomes the main one.
func PrependImages(list ImageList, images ...StagedImage) ImageList {
	if len(images) == 0 {
		return list
	}
	hadImages := len(list) > 0
	out := make(ImageList, 0, len(list)+len(images))
	out = append(out, images...)
	out = append(out, list...)
	if !hadImages {
		for i := range out {
			out[i].IsMain = i == 0
		}
	}
	return out
}

// SetMainImage flips exactly one image to main, all others to false.
// Returns false if no image matches ref.
func SetMainImage(list ImageList, ref string) (ImageList, bool) {
	found := false
	out := make(ImageList, len(list))
	copy(out, list)
	for i := range out {
		match := out[i].ExternalRef == ref || out[i].URL == ref
		out[i].IsMain = match && !found
		if match {
			found = true
		}
	}
	if !found {
		return list, false
	}
	return out, true
}

// RemoveImage deletes the image matching ref. When the removed image was main
// and others remain, the new first image is promoted to main.
func RemoveImage(list ImageList, ref string) (ImageList, *StagedImage) {
	var removed *StagedImage
	out := make(ImageList, 0, len(list))
	for i := range list {
		if removed == nil && (list[i].ExternalRef == ref || list[i].URL == ref) {
			img := list[i]
			removed = &img
			continue
		}
		out = append(out, list[i])
	}
	if removed != nil && removed.IsMain && len(out) > 0 {
		out[0].IsMain = true
	}
	return out, removed
}

// ParseSummary reports the outcome of a parse+stage operation
type ParseSummary struct {
	ProcessedRows int `json:"processedRows"`
	ValidRows     int `json:"validRows"`
	InvalidRows   int `json:"invalidRows"`
	SkippedRows   int `json:"skippedRows"`
}

// CommitResult reports the outcome of a commit invocation. It is transient and
// never persisted; created+updated+skipped+failed always equals the number of
// rows considered.
type CommitResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// StagingSummary reports staged row counts by status plus the most recent
// upload timestamp for a supplier
type StagingSummary struct {
	Total        int64      `json:"total"`
	Pending      int64      `json:"pending"`
	Valid        int64      `json:"valid"`
	Invalid      int64      `json:"invalid"`
	Failed       int64      `json:"failed"`
	LastUploadAt *time.Time `json:"lastUploadAt,omitempty"`
}

// AttachImagesRequest adds already-uploaded images to a staged row
type AttachImagesRequest struct {
	Images []StagedImage `json:"images" binding:"required,min=1"`
}

// SetMainImageRequest selects the main image of a staged row by its external
// reference or URL
type SetMainImageRequest struct {
	ImageRef string `json:"imageRef" binding:"required"`
}

// StagedRowListResponse is the paginated staged row listing envelope
type StagedRowListResponse struct {
	Success    bool            `json:"success"`
	Data       []StagedRow     `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

// StagedRowResponse wraps a single staged row
type StagedRowResponse struct {
	Success bool       `json:"success"`
	Data    *StagedRow `json:"data"`
	Message *string    `json:"message,omitempty"`
}

// ImportResponse wraps the parse summary returned by an upload
type ImportResponse struct {
	Success bool          `json:"success"`
	Data    *ParseSummary `json:"data"`
	Message *string       `json:"message,omitempty"`
}

// CommitResponse wraps a commit result
type CommitResponse struct {
	Success bool          `json:"success"`
	Data    *CommitResult `json:"data"`
	Message *string       `json:"message,omitempty"`
}

// StagingSummaryResponse wraps a staging status summary
type StagingSummaryResponse struct {
	Success bool            `json:"success"`
	Data    *StagingSummary `json:"data"`
}
