package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catalog-service/internal/models"
)

const categoryCacheTTL = 30 * time.Minute

// CatalogRepositoryInterface defines the production catalog operations the
// ingestion pipeline and the CRUD surface depend on
type CatalogRepositoryInterface interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, supplierID string, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, supplierID string, id uuid.UUID) error
	ListSupplierProducts(ctx context.Context, supplierID string, page, limit int) ([]models.Product, int64, error)
	ListAllSupplierProducts(ctx context.Context, supplierID string) ([]models.Product, error)
	FindCategoryByID(ctx context.Context, id string) (*models.Category, error)
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// CatalogRepository persists catalog products and resolves categories, with a
// redis cache over the read-mostly category list
type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ CatalogRepositoryInterface = (*CatalogRepository)(nil)

// NewCatalogRepository creates a catalog repository
func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: redisClient}
}

// CreateProduct inserts a new catalog product
func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.Status == "" {
		product.Status = models.ProductStatusActive
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// GetProductByID fetches a product scoped to its owning supplier
func (r *CatalogRepository) GetProductByID(ctx context.Context, supplierID string, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND id = ?", supplierID, id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct persists the full current state of a product
func (r *CatalogRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(product).Error
}

// DeleteProduct soft deletes a product scoped to its supplier
func (r *CatalogRepository) DeleteProduct(ctx context.Context, supplierID string, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("supplier_id = ? AND id = ?", supplierID, id).
		Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListSupplierProducts returns one page of a supplier's products
func (r *CatalogRepository) ListSupplierProducts(ctx context.Context, supplierID string, page, limit int) ([]models.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("supplier_id = ?", supplierID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListAllSupplierProducts returns a supplier's entire catalog ordered by
// name, used to pre-fill update templates
func (r *CatalogRepository) ListAllSupplierProducts(ctx context.Context, supplierID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// FindCategoryByID resolves a category by identifier
func (r *CatalogRepository) FindCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	categories, err := r.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID.String() == id {
			return &categories[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// FindCategoryByName resolves a category by exact case-insensitive name
func (r *CatalogRepository) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	categories, err := r.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if strings.EqualFold(categories[i].Name, name) {
			return &categories[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ListCategories returns all active categories, cached since they rarely
// change and every validated row resolves against them
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const cacheKey = "catalog:categories"

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var categories []models.Category
			if err := json.Unmarshal([]byte(val), &categories); err == nil {
				return categories, nil
			}
		}
	}

	var categories []models.Category
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(categories); err == nil {
			r.redis.Set(ctx, cacheKey, data, categoryCacheTTL)
		}
	}
	return categories, nil
}
