package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
)

func newStagingService(staging *MockStagingRepository, catalog *MockCatalogRepository, images *MockImageStore) *StagingService {
	validator := importer.NewValidator(catalog, catalog, quietLogger())
	if images == nil {
		return NewStagingService(staging, validator, nil, nil, quietLogger())
	}
	return NewStagingService(staging, validator, images, nil, quietLogger())
}

func patch(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

func validStagedRow() *models.StagedRow {
	catID := uuid.New().String()
	return &models.StagedRow{
		ID:            uuid.New(),
		SupplierID:    "supplier-1",
		RowIndex:      1,
		Name:          "Tomatoes",
		Price:         40,
		StockQuantity: 10,
		Unit:          "kg",
		CategoryID:    &catID,
		Images:        models.ImageList{},
		Errors:        models.StringList{},
		Status:        models.RowStatusValid,
	}
}

func TestUpdateRow_RejectsUnknownField(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	service := newStagingService(staging, new(MockCatalogRepository), nil)

	_, err := service.UpdateRow(ctx, "supplier-1", uuid.New(), patch(t, `{"status":"VALID"}`))

	var fieldErr *FieldNotAllowedError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "status", fieldErr.Field)
	// rejected before any read or write
	staging.AssertNotCalled(t, "GetRow", mock.Anything, mock.Anything, mock.Anything)
	staging.AssertNotCalled(t, "SaveRow", mock.Anything, mock.Anything)
}

func TestUpdateRow_RevalidatesAfterEdit(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newStagingService(staging, catalog, nil)

	row := validStagedRow()
	row.Price = 0
	row.Errors = models.StringList{"price must be greater than 0"}
	row.Status = models.RowStatusInvalid

	catalog.On("FindCategoryByID", mock.Anything, *row.CategoryID).
		Return(&models.Category{ID: uuid.MustParse(*row.CategoryID), Name: "Vegetables"}, nil)
	staging.On("GetRow", ctx, "supplier-1", row.ID).Return(row, nil)
	staging.On("SaveRow", ctx, row).Return(nil)

	updated, err := service.UpdateRow(ctx, "supplier-1", row.ID, patch(t, `{"price": 45.5}`))

	require.NoError(t, err)
	assert.Equal(t, 45.5, updated.Price)
	assert.Equal(t, models.RowStatusValid, updated.Status)
	assert.Empty(t, updated.Errors)
	staging.AssertExpectations(t)
}

func TestUpdateRow_EditCanInvalidate(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newStagingService(staging, catalog, nil)

	row := validStagedRow()
	catalog.On("FindCategoryByID", mock.Anything, *row.CategoryID).
		Return(&models.Category{ID: uuid.MustParse(*row.CategoryID), Name: "Vegetables"}, nil)
	staging.On("GetRow", ctx, "supplier-1", row.ID).Return(row, nil)
	staging.On("SaveRow", ctx, row).Return(nil)

	updated, err := service.UpdateRow(ctx, "supplier-1", row.ID, patch(t, `{"unit": "bucket"}`))

	// the row saves regardless; its status records the invalidity
	require.NoError(t, err)
	assert.Equal(t, models.RowStatusInvalid, updated.Status)
	assert.NotEmpty(t, updated.Errors)
}

func TestUpdateRow_CategoryNameEditReresolves(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newStagingService(staging, catalog, nil)

	row := validStagedRow()
	newCatID := uuid.New()
	catalog.On("FindCategoryByName", mock.Anything, "Fruits").
		Return(&models.Category{ID: newCatID, Name: "Fruits"}, nil)
	staging.On("GetRow", ctx, "supplier-1", row.ID).Return(row, nil)
	staging.On("SaveRow", ctx, row).Return(nil)

	updated, err := service.UpdateRow(ctx, "supplier-1", row.ID, patch(t, `{"categoryName": "Fruits"}`))

	require.NoError(t, err)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, newCatID.String(), *updated.CategoryID)
	assert.Equal(t, models.RowStatusValid, updated.Status)
}

func TestUpdateRow_TypeMismatchedValue(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	service := newStagingService(staging, new(MockCatalogRepository), nil)

	row := validStagedRow()
	staging.On("GetRow", ctx, "supplier-1", row.ID).Return(row, nil)

	_, err := service.UpdateRow(ctx, "supplier-1", row.ID, patch(t, `{"price": "abc"}`))

	var valueErr *InvalidFieldValueError
	require.ErrorAs(t, err, &valueErr)
	assert.Equal(t, "price", valueErr.Field)
	staging.AssertNotCalled(t, "SaveRow", mock.Anything, mock.Anything)
}

func TestUpdateRow_NotFound(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	service := newStagingService(staging, new(MockCatalogRepository), nil)

	rowID := uuid.New()
	staging.On("GetRow", ctx, "supplier-1", rowID).Return(nil, gorm.ErrRecordNotFound)

	_, err := service.UpdateRow(ctx, "supplier-1", rowID, patch(t, `{"name": "x"}`))

	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestAttachImages_FirstBecomesMain(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	service := newStagingService(staging, catalog, nil)

	row := validStagedRow()
	catalog.On("FindCategoryByID", mock.Anything, *row.CategoryID).
		Return(&models.Category{ID: uuid.MustParse(*row.CategoryID), Name: "Vegetables"}, nil)
	staging.On("GetRow", ctx, "supplier-1", row.ID).Return(row, nil)
	staging.On("SaveRow", ctx, row).Return(nil)

	updated, err := service.AttachImages(ctx, "supplier-1", row.ID, []models.StagedImage{
		{URL: "https://cdn.example.com/a.jpg", ExternalRef: "a"},
	})

	require.NoError(t, err)
	require.Len(t, updated.Images, 1)
	assert.True(t, updated.Images[0].IsMain)
}

func TestRemoveImage_ExternalDeleteFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	catalog := new(MockCatalogRepository)
	images := new(MockImageStore)
	service := newStagingService(staging, catalog, images)

	row := validStagedRow()
	row.Images = models.ImageList{
		{URL: "https://cdn.example.com/a.jpg", ExternalRef: "a", IsMain: true},
		{URL: "https://cdn.example.com/b.jpg", ExternalRef: "b"},
	}
	catalog.On("FindCategoryByID", mock.Anything, *row.CategoryID).
		Return(&models.Category{ID: uuid.MustParse(*row.CategoryID), Name: "Vegetables"}, nil)
	staging.On("GetRow", ctx, "supplier-1", row.ID).Return(row, nil)
	staging.On("SaveRow", ctx, row).Return(nil)
	images.On("Delete", ctx, "a").Return(errors.New("image store down"))

	updated, err := service.RemoveImage(ctx, "supplier-1", row.ID, "a")

	require.NoError(t, err)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, "b", updated.Images[0].ExternalRef)
	assert.True(t, updated.Images[0].IsMain)
	images.AssertExpectations(t)
}

func TestSetMainImage_UnknownRef(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	service := newStagingService(staging, new(MockCatalogRepository), nil)

	row := validStagedRow()
	row.Images = models.ImageList{{URL: "https://cdn.example.com/a.jpg", ExternalRef: "a", IsMain: true}}
	staging.On("GetRow", ctx, "supplier-1", row.ID).Return(row, nil)

	_, err := service.SetMainImage(ctx, "supplier-1", row.ID, "missing")

	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.NotErrorIs(t, err, ErrRowNotFound)
	staging.AssertNotCalled(t, "SaveRow", mock.Anything, mock.Anything)
}

func TestRemoveImage_UnknownRef(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	service := newStagingService(staging, new(MockCatalogRepository), nil)

	row := validStagedRow()
	row.Images = models.ImageList{{URL: "https://cdn.example.com/a.jpg", ExternalRef: "a", IsMain: true}}
	staging.On("GetRow", ctx, "supplier-1", row.ID).Return(row, nil)

	_, err := service.RemoveImage(ctx, "supplier-1", row.ID, "missing")

	assert.ErrorIs(t, err, ErrImageNotFound)
	staging.AssertNotCalled(t, "SaveRow", mock.Anything, mock.Anything)
}

func TestClear_DelegatesToStore(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	service := newStagingService(staging, new(MockCatalogRepository), nil)

	staging.On("Clear", ctx, "supplier-1").Return(nil)

	require.NoError(t, service.Clear(ctx, "supplier-1", "user-1"))
	staging.AssertExpectations(t)
}

func TestSummary_DelegatesToStore(t *testing.T) {
	ctx := context.Background()
	staging := new(MockStagingRepository)
	service := newStagingService(staging, new(MockCatalogRepository), nil)

	staging.On("StatusSummary", ctx, "supplier-1").
		Return(&models.StagingSummary{Total: 5, Valid: 3, Invalid: 2}, nil)

	summary, err := service.Summary(ctx, "supplier-1")

	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.Total)
}
