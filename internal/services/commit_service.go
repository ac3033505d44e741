package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"catalog-service/internal/events"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// Commit batch size bounds. Requests outside the range are clamped, never
// rejected.
const (
	MinCommitBatchSize     = 10
	MaxCommitBatchSize     = 200
	DefaultCommitBatchSize = 50
)

// defaultPageDelay is the pause between commit pages, keeping a large commit
// from monopolizing the database
const defaultPageDelay = 100 * time.Millisecond

// CommitOptions tunes a commit invocation
type CommitOptions struct {
	BatchSize      int  `json:"batchSize"`
	IncludeInvalid bool `json:"includeInvalid"`
}

// CommitService moves staged rows into the production catalog. Rows succeed
// and fail independently; a failed row never stops the batch, only an
// infrastructure error does.
type CommitService struct {
	staging   repository.StagingRepositoryInterface
	catalog   repository.CatalogRepositoryInterface
	publisher *events.Publisher
	pageDelay time.Duration
	logger    *logrus.Entry
}

// NewCommitService creates a commit service. publisher may be nil when
// eventing is disabled.
func NewCommitService(staging repository.StagingRepositoryInterface, catalog repository.CatalogRepositoryInterface, publisher *events.Publisher, pageDelay time.Duration, logger *logrus.Logger) *CommitService {
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}
	return &CommitService{
		staging:   staging,
		catalog:   catalog,
		publisher: publisher,
		pageDelay: pageDelay,
		logger:    logger.WithField("component", "commit-service"),
	}
}

func clampBatchSize(n int) int {
	if n == 0 {
		return DefaultCommitBatchSize
	}
	if n < MinCommitBatchSize {
		return MinCommitBatchSize
	}
	if n > MaxCommitBatchSize {
		return MaxCommitBatchSize
	}
	return n
}

// Commit walks the supplier's staged rows in spreadsheet order, one page at a
// time, and creates or updates catalog products from them. Committed rows are
// removed from staging; failed rows are kept with status FAILED and the
// failure appended to their errors. Invalid rows are skipped unless
// opts.IncludeInvalid is set. The returned result always satisfies
// created+updated+skipped+failed == rows considered, even when an
// infrastructure error aborts the run early; in that case the partial result
// is returned alongside the error and nothing already committed is rolled
// back.
func (s *CommitService) Commit(ctx context.Context, supplierID, actorID string, opts CommitOptions) (*models.CommitResult, error) {
	batchSize := clampBatchSize(opts.BatchSize)
	result := &models.CommitResult{}

	log := s.logger.WithFields(logrus.Fields{
		"supplier_id":     supplierID,
		"batch_size":      batchSize,
		"include_invalid": opts.IncludeInvalid,
	})
	log.Info("Commit started")

	var cursor *int
	for {
		rows, _, err := s.staging.ListPage(ctx, supplierID, repository.ListOptions{
			Page:          1,
			Limit:         batchSize,
			SortBy:        "row_index",
			SortOrder:     "ASC",
			AfterRowIndex: cursor,
		})
		if err != nil {
			return result, fmt.Errorf("failed to load staged rows: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		for i := range rows {
			row := &rows[i]

			if row.Status != models.RowStatusValid && !opts.IncludeInvalid {
				result.Skipped++
				continue
			}

			created, err := s.commitRow(ctx, supplierID, row)
			if err != nil {
				if infraErr := s.recordFailure(ctx, row, result, err); infraErr != nil {
					return result, infraErr
				}
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}

			if err := s.staging.DeleteRow(ctx, supplierID, row.ID); err != nil {
				return result, fmt.Errorf("failed to remove committed row %d from staging: %w", row.RowIndex, err)
			}
		}

		last := rows[len(rows)-1].RowIndex
		cursor = &last

		if len(rows) == batchSize {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.pageDelay):
			}
		}
	}

	log.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("Commit finished")

	if s.publisher != nil {
		s.publisher.PublishCommitCompleted(ctx, supplierID, actorID, result)
	}
	return result, nil
}

// recordFailure marks the row FAILED and appends the failure to both the row
// and the running result. A non-nil return means the bookkeeping itself hit
// the database and the commit must abort.
func (s *CommitService) recordFailure(ctx context.Context, row *models.StagedRow, result *models.CommitResult, cause error) error {
	result.Failed++
	msg := fmt.Sprintf("Row %d: %s - %s", row.RowIndex, row.Name, cause.Error())
	result.Errors = append(result.Errors, msg)

	row.Status = models.RowStatusFailed
	row.Errors = append(row.Errors, msg)
	if err := s.staging.SaveRow(ctx, row); err != nil {
		return fmt.Errorf("failed to record row %d failure: %w", row.RowIndex, err)
	}

	s.logger.WithFields(logrus.Fields{
		"supplier_id": row.SupplierID,
		"row_index":   row.RowIndex,
	}).WithError(cause).Warn("Row commit failed")
	return nil
}

// commitRow writes one staged row into the catalog, either creating a product
// or updating the one the row references
func (s *CommitService) commitRow(ctx context.Context, supplierID string, row *models.StagedRow) (created bool, err error) {
	if row.CategoryID == nil {
		return false, errors.New("category is not resolved")
	}

	if row.IsUpdate && row.ProductID != nil {
		product, err := s.catalog.GetProductByID(ctx, supplierID, *row.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, fmt.Errorf("product %s not found or doesn't belong to this supplier", row.ProductID)
			}
			return false, err
		}

		product.Name = row.Name
		product.Description = row.Description
		product.Price = row.Price
		product.DiscountedPrice = row.DiscountedPrice
		product.GstRate = row.GstRate
		product.StockQuantity = row.StockQuantity
		product.Unit = row.Unit
		product.CategoryID = *row.CategoryID
		if len(row.Images) > 0 {
			product.Images = row.Images
		}

		if err := s.catalog.UpdateProduct(ctx, product); err != nil {
			return false, err
		}
		return false, nil
	}

	product := &models.Product{
		SupplierID:      supplierID,
		CategoryID:      *row.CategoryID,
		Name:            row.Name,
		Description:     row.Description,
		Price:           row.Price,
		DiscountedPrice: row.DiscountedPrice,
		GstRate:         row.GstRate,
		StockQuantity:   row.StockQuantity,
		Unit:            row.Unit,
		Images:          row.Images,
		Status:          models.ProductStatusActive,
	}
	if err := s.catalog.CreateProduct(ctx, product); err != nil {
		return false, err
	}
	return true, nil
}
