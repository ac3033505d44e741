package services

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"catalog-service/internal/clients"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// MockStagingRepository is a mock implementation of StagingRepositoryInterface
type MockStagingRepository struct {
	mock.Mock
}

var _ repository.StagingRepositoryInterface = (*MockStagingRepository)(nil)

func (m *MockStagingRepository) ReplaceAll(ctx context.Context, supplierID string, rows []*models.StagedRow) error {
	args := m.Called(ctx, supplierID, rows)
	return args.Error(0)
}

func (m *MockStagingRepository) ListPage(ctx context.Context, supplierID string, opts repository.ListOptions) ([]models.StagedRow, int64, error) {
	args := m.Called(ctx, supplierID, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.StagedRow), args.Get(1).(int64), args.Error(2)
}

func (m *MockStagingRepository) GetRow(ctx context.Context, supplierID string, rowID uuid.UUID) (*models.StagedRow, error) {
	args := m.Called(ctx, supplierID, rowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StagedRow), args.Error(1)
}

func (m *MockStagingRepository) SaveRow(ctx context.Context, row *models.StagedRow) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockStagingRepository) DeleteRow(ctx context.Context, supplierID string, rowID uuid.UUID) error {
	args := m.Called(ctx, supplierID, rowID)
	return args.Error(0)
}

func (m *MockStagingRepository) Clear(ctx context.Context, supplierID string) error {
	args := m.Called(ctx, supplierID)
	return args.Error(0)
}

func (m *MockStagingRepository) StatusSummary(ctx context.Context, supplierID string) (*models.StagingSummary, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StagingSummary), args.Error(1)
}

// MockCatalogRepository is a mock implementation of CatalogRepositoryInterface
type MockCatalogRepository struct {
	mock.Mock
}

var _ repository.CatalogRepositoryInterface = (*MockCatalogRepository)(nil)

func (m *MockCatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	if args.Error(0) == nil && product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockCatalogRepository) GetProductByID(ctx context.Context, supplierID string, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, supplierID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockCatalogRepository) DeleteProduct(ctx context.Context, supplierID string, id uuid.UUID) error {
	args := m.Called(ctx, supplierID, id)
	return args.Error(0)
}

func (m *MockCatalogRepository) ListSupplierProducts(ctx context.Context, supplierID string, page, limit int) ([]models.Product, int64, error) {
	args := m.Called(ctx, supplierID, page, limit)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogRepository) ListAllSupplierProducts(ctx context.Context, supplierID string) ([]models.Product, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockCatalogRepository) FindCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCatalogRepository) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Category), args.Error(1)
}

// MockImageStore is a mock implementation of clients.ImageStoreInterface
type MockImageStore struct {
	mock.Mock
}

var _ clients.ImageStoreInterface = (*MockImageStore)(nil)

func (m *MockImageStore) Upload(ctx context.Context, file io.Reader, filename, folder string) (*clients.UploadedImage, error) {
	args := m.Called(ctx, file, filename, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.UploadedImage), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, externalRef string) error {
	args := m.Called(ctx, externalRef)
	return args.Error(0)
}
