package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductStatus represents the status of a catalog product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// Units of sale accepted across the catalog
const (
	UnitKg     = "kg"
	UnitG      = "g"
	UnitLiters = "liters"
	UnitMl     = "ml"
	UnitPcs    = "pcs"
	UnitBox    = "box"
	UnitDozen  = "dozen"
)

// AllowedUnits is the fixed enumerated set a product unit must belong to
var AllowedUnits = []string{UnitKg, UnitG, UnitLiters, UnitMl, UnitPcs, UnitBox, UnitDozen}

// IsAllowedUnit reports whether unit belongs to the enumerated set
func IsAllowedUnit(unit string) bool {
	for _, u := range AllowedUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// Validation bounds shared by the row validator and catalog handlers
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000
	MaxPrice             = 1_000_000
	MaxStockQuantity     = 1_000_000
	MaxRowImages         = 10
)

// Product is the canonical catalog entity sold on the marketplace
type Product struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID      string          `json:"supplierId" gorm:"not null;index:idx_products_supplier"`
	CategoryID      string          `json:"categoryId" gorm:"not null;index:idx_products_category"`
	Name            string          `json:"name" gorm:"not null"`
	Description     *string         `json:"description,omitempty"`
	Price           float64         `json:"price" gorm:"not null"`
	DiscountedPrice *float64        `json:"discountedPrice,omitempty"`
	GstRate         float64         `json:"gstRate" gorm:"not null;default:0"`
	StockQuantity   int             `json:"stockQuantity" gorm:"not null;default:0"`
	Unit            string          `json:"unit" gorm:"not null"`
	Images          ImageList       `json:"images" gorm:"type:jsonb"`
	Status          ProductStatus   `json:"status" gorm:"not null;default:'ACTIVE';index:idx_products_supplier_status"`
	Metadata        datatypes.JSON  `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	DeletedAt       *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// Category represents a produce category (read-mostly)
type Category struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	IsActive  bool      `json:"isActive" gorm:"default:true"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// Supplier is the owning party of staged rows and catalog products
// (read-only here; managed by the suppliers subsystem)
type Supplier struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name     string    `json:"name" gorm:"not null"`
	IsActive bool      `json:"isActive" gorm:"default:true"`
}

// TableName returns the table name for the Supplier model
func (Supplier) TableName() string {
	return "suppliers"
}

// UpdateProductRequest represents a request to update a catalog product
type UpdateProductRequest struct {
	Name            *string        `json:"name,omitempty"`
	Description     *string        `json:"description,omitempty"`
	Price           *float64       `json:"price,omitempty"`
	DiscountedPrice *float64       `json:"discountedPrice,omitempty"`
	GstRate         *float64       `json:"gstRate,omitempty"`
	StockQuantity   *int           `json:"stockQuantity,omitempty"`
	Unit            *string        `json:"unit,omitempty"`
	CategoryID      *string        `json:"categoryId,omitempty"`
	Status          *ProductStatus `json:"status,omitempty"`
}

// Response types
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success    bool            `json:"success"`
	Data       []Product       `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type CategoryListResponse struct {
	Success bool       `json:"success"`
	Data    []Category `json:"data"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
