package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newCommitService(staging *MockStagingRepository, catalog *MockCatalogRepository) *CommitService {
	return NewCommitService(staging, catalog, nil, time.Millisecond, quietLogger())
}

func stagedRow(index int, name string, status models.RowStatus) models.StagedRow {
	catID := uuid.New().String()
	return models.StagedRow{
		ID:            uuid.New(),
		SupplierID:    "supplier-1",
		RowIndex:      index,
		Name:          name,
		Price:         40,
		StockQuantity: 10,
		Unit:          "kg",
		CategoryID:    &catID,
		Errors:        models.StringList{},
		Status:        status,
	}
}

func TestCommit_CreatesUpdatesAndSkips(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newCommitService(staging, catalog)

	createRow := stagedRow(1, "Tomatoes", models.RowStatusValid)

	productID := uuid.New()
	updateRow := stagedRow(2, "Spinach", models.RowStatusValid)
	updateRow.IsUpdate = true
	updateRow.ProductID = &productID

	invalidRow := stagedRow(3, "Broken", models.RowStatusInvalid)
	invalidRow.Errors = models.StringList{"price must be greater than 0"}

	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return([]models.StagedRow{createRow, updateRow, invalidRow}, int64(3), nil).Once()
	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return([]models.StagedRow{}, int64(0), nil).Once()

	catalog.On("CreateProduct", ctx, mock.AnythingOfType("*models.Product")).Return(nil)
	catalog.On("GetProductByID", ctx, "supplier-1", productID).
		Return(&models.Product{ID: productID, SupplierID: "supplier-1"}, nil)
	catalog.On("UpdateProduct", ctx, mock.AnythingOfType("*models.Product")).Return(nil)

	staging.On("DeleteRow", ctx, "supplier-1", createRow.ID).Return(nil)
	staging.On("DeleteRow", ctx, "supplier-1", updateRow.ID).Return(nil)

	result, err := service.Commit(ctx, "supplier-1", "user-1", CommitOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 3, result.Created+result.Updated+result.Skipped+result.Failed)
	// the invalid row is never touched
	staging.AssertNotCalled(t, "DeleteRow", ctx, "supplier-1", invalidRow.ID)
	staging.AssertExpectations(t)
	catalog.AssertExpectations(t)
}

func TestCommit_RowFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newCommitService(staging, catalog)

	failing := stagedRow(1, "Tomatoes", models.RowStatusValid)
	succeeding := stagedRow(2, "Spinach", models.RowStatusValid)

	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return([]models.StagedRow{failing, succeeding}, int64(2), nil).Once()
	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return([]models.StagedRow{}, int64(0), nil).Once()

	catalog.On("CreateProduct", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.Name == "Tomatoes"
	})).Return(errors.New("duplicate product name"))
	catalog.On("CreateProduct", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.Name == "Spinach"
	})).Return(nil)

	var savedRow *models.StagedRow
	staging.On("SaveRow", ctx, mock.AnythingOfType("*models.StagedRow")).
		Run(func(args mock.Arguments) {
			savedRow = args.Get(1).(*models.StagedRow)
		}).Return(nil)
	staging.On("DeleteRow", ctx, "supplier-1", succeeding.ID).Return(nil)

	result, err := service.Commit(ctx, "supplier-1", "user-1", CommitOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Row 1: Tomatoes - duplicate product name", result.Errors[0])

	require.NotNil(t, savedRow)
	assert.Equal(t, models.RowStatusFailed, savedRow.Status)
	assert.Contains(t, savedRow.Errors, "Row 1: Tomatoes - duplicate product name")
	// the failed row stays in staging
	staging.AssertNotCalled(t, "DeleteRow", ctx, "supplier-1", failing.ID)
}

func TestCommit_IncludeInvalidAttemptsInvalidRows(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newCommitService(staging, catalog)

	invalid := stagedRow(1, "Broken", models.RowStatusInvalid)
	invalid.CategoryID = nil
	invalid.Errors = models.StringList{"either categoryId or categoryName is required"}

	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return([]models.StagedRow{invalid}, int64(1), nil).Once()
	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return([]models.StagedRow{}, int64(0), nil).Once()
	staging.On("SaveRow", ctx, mock.AnythingOfType("*models.StagedRow")).Return(nil)

	result, err := service.Commit(ctx, "supplier-1", "user-1", CommitOptions{IncludeInvalid: true})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Row 1: Broken - ")
	catalog.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestCommit_UpdateTargetGone(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newCommitService(staging, catalog)

	productID := uuid.New()
	row := stagedRow(4, "Mangoes", models.RowStatusValid)
	row.IsUpdate = true
	row.ProductID = &productID

	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return([]models.StagedRow{row}, int64(1), nil).Once()
	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return([]models.StagedRow{}, int64(0), nil).Once()
	catalog.On("GetProductByID", ctx, "supplier-1", productID).
		Return(nil, gorm.ErrRecordNotFound)
	staging.On("SaveRow", ctx, mock.AnythingOfType("*models.StagedRow")).Return(nil)

	result, err := service.Commit(ctx, "supplier-1", "user-1", CommitOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not found or doesn't belong to this supplier")
}

func TestCommit_InfraErrorAbortsWithPartialResult(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newCommitService(staging, catalog)

	staging.On("ListPage", ctx, "supplier-1", mock.Anything).
		Return(nil, int64(0), errors.New("connection refused"))

	result, err := service.Commit(ctx, "supplier-1", "user-1", CommitOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load staged rows")
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Created+result.Updated+result.Skipped+result.Failed)
}

func TestCommit_CursorAdvancesPastRetainedRows(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newCommitService(staging, catalog)

	// a full first page of invalid rows would loop forever without the cursor
	page := make([]models.StagedRow, MinCommitBatchSize)
	for i := range page {
		page[i] = stagedRow(i+1, fmt.Sprintf("Item %d", i+1), models.RowStatusInvalid)
	}

	staging.On("ListPage", ctx, "supplier-1", mock.MatchedBy(func(opts repository.ListOptions) bool {
		return opts.AfterRowIndex == nil
	})).Return(page, int64(len(page)), nil).Once()
	staging.On("ListPage", ctx, "supplier-1", mock.MatchedBy(func(opts repository.ListOptions) bool {
		return opts.AfterRowIndex != nil && *opts.AfterRowIndex == MinCommitBatchSize
	})).Return([]models.StagedRow{}, int64(0), nil).Once()

	result, err := service.Commit(ctx, "supplier-1", "user-1", CommitOptions{BatchSize: MinCommitBatchSize})

	require.NoError(t, err)
	assert.Equal(t, MinCommitBatchSize, result.Skipped)
	staging.AssertExpectations(t)
	_ = catalog
}

func TestClampBatchSize(t *testing.T) {
	assert.Equal(t, DefaultCommitBatchSize, clampBatchSize(0))
	assert.Equal(t, MinCommitBatchSize, clampBatchSize(3))
	assert.Equal(t, MaxCommitBatchSize, clampBatchSize(5000))
	assert.Equal(t, 75, clampBatchSize(75))
}
