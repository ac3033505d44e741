package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"catalog-service/internal/clients"
	"catalog-service/internal/events"
	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// ErrRowNotFound is returned when a staged row does not exist for the supplier
var ErrRowNotFound = errors.New("staged row not found")

// ErrImageNotFound is returned when an image reference does not match any
// image on the staged row
var ErrImageNotFound = errors.New("image not found on staged row")

// FieldNotAllowedError is returned when a row update names a field outside the
// editable set
type FieldNotAllowedError struct {
	Field string
}

func (e *FieldNotAllowedError) Error() string {
	return fmt.Sprintf("field %q cannot be updated", e.Field)
}

// InvalidFieldValueError is returned when a row update carries a value that
// cannot be decoded into the field's type
type InvalidFieldValueError struct {
	Field string
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf("invalid value for field %q", e.Field)
}

// editableFields is the allow-list for staged row updates. Identity and
// bookkeeping fields (id, rowIndex, status, errors, productId) stay
// server-controlled.
var editableFields = map[string]bool{
	"name":            true,
	"description":     true,
	"price":           true,
	"discountedPrice": true,
	"gstRate":         true,
	"stockQuantity":   true,
	"unit":            true,
	"categoryId":      true,
	"categoryName":    true,
	"images":          true,
}

// StagingService manages the review-and-fix lifecycle of staged rows between
// upload and commit
type StagingService struct {
	staging    repository.StagingRepositoryInterface
	validator  *importer.Validator
	imageStore clients.ImageStoreInterface
	publisher  *events.Publisher
	logger     *logrus.Entry
}

// NewStagingService creates a staging service. imageStore and publisher may be
// nil when the respective integrations are disabled.
func NewStagingService(staging repository.StagingRepositoryInterface, validator *importer.Validator, imageStore clients.ImageStoreInterface, publisher *events.Publisher, logger *logrus.Logger) *StagingService {
	return &StagingService{
		staging:    staging,
		validator:  validator,
		imageStore: imageStore,
		publisher:  publisher,
		logger:     logger.WithField("component", "staging-service"),
	}
}

// List returns one page of the supplier's staged rows
func (s *StagingService) List(ctx context.Context, supplierID string, opts repository.ListOptions) ([]models.StagedRow, int64, error) {
	return s.staging.ListPage(ctx, supplierID, opts)
}

// GetRow fetches a single staged row
func (s *StagingService) GetRow(ctx context.Context, supplierID string, rowID uuid.UUID) (*models.StagedRow, error) {
	row, err := s.staging.GetRow(ctx, supplierID, rowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	return row, nil
}

// UpdateRow applies a partial update to a staged row and re-validates it.
// Unknown or non-editable fields reject the whole update. The row is saved
// regardless of whether re-validation passes; its status reflects the result.
func (s *StagingService) UpdateRow(ctx context.Context, supplierID string, rowID uuid.UUID, patch map[string]json.RawMessage) (*models.StagedRow, error) {
	for field := range patch {
		if !editableFields[field] {
			return nil, &FieldNotAllowedError{Field: field}
		}
	}

	row, err := s.GetRow(ctx, supplierID, rowID)
	if err != nil {
		return nil, err
	}

	if err := applyPatch(row, patch); err != nil {
		return nil, err
	}

	s.validator.Revalidate(ctx, row)

	if err := s.staging.SaveRow(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to save row: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"supplier_id": supplierID,
		"row_id":      rowID,
		"status":      row.Status,
	}).Info("Staged row updated")

	return row, nil
}

func applyPatch(row *models.StagedRow, patch map[string]json.RawMessage) error {
	unmarshal := func(field string, dst interface{}) error {
		if err := json.Unmarshal(patch[field], dst); err != nil {
			return &InvalidFieldValueError{Field: field}
		}
		return nil
	}

	for field := range patch {
		var err error
		switch field {
		case "name":
			err = unmarshal(field, &row.Name)
		case "description":
			err = unmarshal(field, &row.Description)
		case "price":
			err = unmarshal(field, &row.Price)
		case "discountedPrice":
			err = unmarshal(field, &row.DiscountedPrice)
		case "gstRate":
			err = unmarshal(field, &row.GstRate)
		case "stockQuantity":
			err = unmarshal(field, &row.StockQuantity)
		case "unit":
			err = unmarshal(field, &row.Unit)
		case "categoryId":
			if err = unmarshal(field, &row.CategoryID); err == nil {
				// force re-resolution from the new id
				row.CategoryName = nil
			}
		case "categoryName":
			if err = unmarshal(field, &row.CategoryName); err == nil {
				row.CategoryID = nil
			}
		case "images":
			err = unmarshal(field, &row.Images)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// AttachImages prepends uploaded images to a staged row's gallery
func (s *StagingService) AttachImages(ctx context.Context, supplierID string, rowID uuid.UUID, images []models.StagedImage) (*models.StagedRow, error) {
	row, err := s.GetRow(ctx, supplierID, rowID)
	if err != nil {
		return nil, err
	}

	row.Images = models.PrependImages(row.Images, images...)
	s.validator.Revalidate(ctx, row)

	if err := s.staging.SaveRow(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to save row: %w", err)
	}
	return row, nil
}

// SetMainImage marks one image of the row as main by its external reference or
// URL
func (s *StagingService) SetMainImage(ctx context.Context, supplierID string, rowID uuid.UUID, imageRef string) (*models.StagedRow, error) {
	row, err := s.GetRow(ctx, supplierID, rowID)
	if err != nil {
		return nil, err
	}

	images, found := models.SetMainImage(row.Images, imageRef)
	if !found {
		return nil, ErrImageNotFound
	}
	row.Images = images

	if err := s.staging.SaveRow(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to save row: %w", err)
	}
	return row, nil
}

// RemoveImage removes one image from the row. If the removed image was main,
// the next remaining image is promoted. The stored file is deleted
// best-effort; a storage failure never fails the row update.
func (s *StagingService) RemoveImage(ctx context.Context, supplierID string, rowID uuid.UUID, imageRef string) (*models.StagedRow, error) {
	row, err := s.GetRow(ctx, supplierID, rowID)
	if err != nil {
		return nil, err
	}

	images, removed := models.RemoveImage(row.Images, imageRef)
	if removed == nil {
		return nil, ErrImageNotFound
	}
	row.Images = images
	s.validator.Revalidate(ctx, row)

	if err := s.staging.SaveRow(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to save row: %w", err)
	}

	if s.imageStore != nil && removed.ExternalRef != "" {
		if err := s.imageStore.Delete(ctx, removed.ExternalRef); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"supplier_id":  supplierID,
				"row_id":       rowID,
				"external_ref": removed.ExternalRef,
			}).Warn("Failed to delete stored image")
		}
	}

	return row, nil
}

// Clear discards every staged row of the supplier
func (s *StagingService) Clear(ctx context.Context, supplierID, actorID string) error {
	if err := s.staging.Clear(ctx, supplierID); err != nil {
		return fmt.Errorf("failed to clear staging: %w", err)
	}

	s.logger.WithField("supplier_id", supplierID).Info("Staging cleared")

	if s.publisher != nil {
		s.publisher.PublishStagingCleared(ctx, supplierID, actorID)
	}
	return nil
}

// Summary returns staged row counts by status for the supplier
func (s *StagingService) Summary(ctx context.Context, supplierID string) (*models.StagingSummary, error) {
	return s.staging.StatusSummary(ctx, supplierID)
}
