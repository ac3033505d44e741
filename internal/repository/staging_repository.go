package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catalog-service/internal/models"
)

// InsertBatchSize bounds each staging insert so a large upload never turns
// into one oversized transaction statement
const InsertBatchSize = 100

const summaryCacheTTL = 15 * time.Second

// ListOptions controls staged row listing
type ListOptions struct {
	Status    *models.RowStatus
	Page      int
	Limit     int
	SortBy    string // row_index, status, updated_at
	SortOrder string // ASC or DESC

	// AfterRowIndex restricts the page to rows past the given spreadsheet
	// index. The committer uses it as a cursor so rows it deletes or marks
	// failed never shift its window.
	AfterRowIndex *int
}

// StagingRepositoryInterface defines the staging store operations, kept as an
// interface so services can be tested against mocks
type StagingRepositoryInterface interface {
	ReplaceAll(ctx context.Context, supplierID string, rows []*models.StagedRow) error
	ListPage(ctx context.Context, supplierID string, opts ListOptions) ([]models.StagedRow, int64, error)
	GetRow(ctx context.Context, supplierID string, rowID uuid.UUID) (*models.StagedRow, error)
	SaveRow(ctx context.Context, row *models.StagedRow) error
	DeleteRow(ctx context.Context, supplierID string, rowID uuid.UUID) error
	Clear(ctx context.Context, supplierID string) error
	StatusSummary(ctx context.Context, supplierID string) (*models.StagingSummary, error)
}

// StagingRepository persists staged rows in Postgres with a best-effort redis
// cache in front of the status summary
type StagingRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ StagingRepositoryInterface = (*StagingRepository)(nil)

// NewStagingRepository creates a staging repository
func NewStagingRepository(db *gorm.DB, redisClient *redis.Client) *StagingRepository {
	return &StagingRepository{db: db, redis: redisClient}
}

// ReplaceAll discards every staged row the supplier currently has and inserts
// the new set in fixed-size batches within one transaction. Re-staging is
// therefore idempotent with respect to the latest upload only.
func (r *StagingRepository) ReplaceAll(ctx context.Context, supplierID string, rows []*models.StagedRow) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("supplier_id = ?", supplierID).Delete(&models.StagedRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous staged rows: %w", err)
		}
		now := time.Now()
		for _, row := range rows {
			row.SupplierID = supplierID
			if row.ID == uuid.Nil {
				row.ID = uuid.New()
			}
			row.CreatedAt = now
			row.UpdatedAt = now
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, InsertBatchSize).Error
	})
	if err == nil {
		r.invalidateSummary(ctx, supplierID)
	}
	return err
}

// ListPage returns one page of staged rows, ordered by original row index
// unless a different sort is requested
func (r *StagingRepository) ListPage(ctx context.Context, supplierID string, opts ListOptions) ([]models.StagedRow, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StagedRow{}).Where("supplier_id = ?", supplierID)
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}
	if opts.AfterRowIndex != nil {
		query = query.Where("row_index > ?", *opts.AfterRowIndex)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := opts.SortBy
	switch sortBy {
	case "status", "updated_at", "row_index":
	default:
		sortBy = "row_index"
	}
	order := "ASC"
	if opts.SortOrder == "DESC" {
		order = "DESC"
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 20
	}

	var rows []models.StagedRow
	err := query.
		Order(fmt.Sprintf("%s %s", sortBy, order)).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetRow fetches a single staged row scoped to its supplier
func (r *StagingRepository) GetRow(ctx context.Context, supplierID string, rowID uuid.UUID) (*models.StagedRow, error) {
	var row models.StagedRow
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND id = ?", supplierID, rowID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveRow persists the full current state of a staged row
func (r *StagingRepository) SaveRow(ctx context.Context, row *models.StagedRow) error {
	row.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(row).Error
	if err == nil {
		r.invalidateSummary(ctx, row.SupplierID)
	}
	return err
}

// DeleteRow removes one staged row, scoped to its supplier
func (r *StagingRepository) DeleteRow(ctx context.Context, supplierID string, rowID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND id = ?", supplierID, rowID).
		Delete(&models.StagedRow{}).Error
	if err == nil {
		r.invalidateSummary(ctx, supplierID)
	}
	return err
}

// Clear unconditionally deletes all staged rows for a supplier
func (r *StagingRepository) Clear(ctx context.Context, supplierID string) error {
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Delete(&models.StagedRow{}).Error
	if err == nil {
		r.invalidateSummary(ctx, supplierID)
	}
	return err
}

// StatusSummary counts staged rows by status and reports the most recent
// upload timestamp, cached briefly in redis
func (r *StagingRepository) StatusSummary(ctx context.Context, supplierID string) (*models.StagingSummary, error) {
	cacheKey := r.summaryKey(supplierID)
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var summary models.StagingSummary
			if err := json.Unmarshal([]byte(val), &summary); err == nil {
				return &summary, nil
			}
		}
	}

	var counts []struct {
		Status models.RowStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.StagedRow{}).
		Select("status, COUNT(*) as count").
		Where("supplier_id = ?", supplierID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	summary := &models.StagingSummary{}
	for _, c := range counts {
		summary.Total += c.Count
		switch c.Status {
		case models.RowStatusPending:
			summary.Pending = c.Count
		case models.RowStatusValid:
			summary.Valid = c.Count
		case models.RowStatusInvalid:
			summary.Invalid = c.Count
		case models.RowStatusFailed:
			summary.Failed = c.Count
		}
	}

	if summary.Total > 0 {
		var last time.Time
		err = r.db.WithContext(ctx).Model(&models.StagedRow{}).
			Select("MAX(created_at)").
			Where("supplier_id = ?", supplierID).
			Scan(&last).Error
		if err == nil && !last.IsZero() {
			summary.LastUploadAt = &last
		}
	}

	if r.redis != nil {
		if data, err := json.Marshal(summary); err == nil {
			r.redis.Set(ctx, cacheKey, data, summaryCacheTTL)
		}
	}
	return summary, nil
}

func (r *StagingRepository) summaryKey(supplierID string) string {
	return fmt.Sprintf("catalog:staging:summary:%s", supplierID)
}

func (r *StagingRepository) invalidateSummary(ctx context.Context, supplierID string) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, r.summaryKey(supplierID))
}
