package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// CatalogHandler exposes read and maintenance operations on the production
// catalog
type CatalogHandler struct {
	catalog repository.CatalogRepositoryInterface
	pages   PageLimits
	logger  *logrus.Entry
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(catalog repository.CatalogRepositoryInterface, pages PageLimits, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		pages:   pages,
		logger:  logger.WithField("component", "catalog-handler"),
	}
}

// ListProducts returns a page of the supplier's catalog
// @Summary List catalog products
// @Tags catalog
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Products per page" default(20)
// @Success 200 {object} models.ProductListResponse
// @Router /suppliers/{supplierId}/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	supplierID := c.Param("supplierId")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	page, limit = h.pages.clamp(page, limit)

	products, total, err := h.catalog.ListSupplierProducts(c.Request.Context(), supplierID, page, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list products")
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, models.ProductListResponse{
		Success: true,
		Data:    products,
		Pagination: &models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

// GetProduct returns one catalog product
// @Summary Get a catalog product
// @Tags catalog
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param productId path string true "Product ID"
// @Success 200 {object} models.ProductResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/products/{productId} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	supplierID := c.Param("supplierId")
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product id")
		return
	}

	product, err := h.catalog.GetProductByID(c.Request.Context(), supplierID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to get product")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get product")
		return
	}
	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// UpdateProduct applies a partial update directly to a catalog product
// @Summary Update a catalog product
// @Tags catalog
// @Accept json
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param productId path string true "Product ID"
// @Param request body models.UpdateProductRequest true "Fields to update"
// @Success 200 {object} models.ProductResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/products/{productId} [put]
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	supplierID := c.Param("supplierId")
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product id")
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if msg := validateProductUpdate(&req); msg != "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	product, err := h.catalog.GetProductByID(c.Request.Context(), supplierID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to get product")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get product")
		return
	}

	applyProductUpdate(product, &req)
	if err := h.catalog.UpdateProduct(c.Request.Context(), product); err != nil {
		h.logger.WithError(err).Error("Failed to update product")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// DeleteProduct soft-deletes a catalog product
// @Summary Delete a catalog product
// @Tags catalog
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param productId path string true "Product ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/products/{productId} [delete]
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	supplierID := c.Param("supplierId")
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid product id")
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), supplierID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete product")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete product")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: strPtr("Product deleted")})
}

// ListCategories returns all produce categories
// @Summary List categories
// @Tags catalog
// @Produce json
// @Success 200 {object} models.CategoryListResponse
// @Router /categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list categories")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list categories")
		return
	}
	c.JSON(http.StatusOK, models.CategoryListResponse{Success: true, Data: categories})
}

func validateProductUpdate(req *models.UpdateProductRequest) string {
	if req.Name != nil && (*req.Name == "" || utf8.RuneCountInString(*req.Name) > models.MaxNameLength) {
		return "name must be between 1 and 100 characters"
	}
	if req.Price != nil && (*req.Price <= 0 || *req.Price > models.MaxPrice) {
		return "price must be greater than 0 and at most 1000000"
	}
	if req.StockQuantity != nil && (*req.StockQuantity < 0 || *req.StockQuantity > models.MaxStockQuantity) {
		return "stockQuantity must be between 0 and 1000000"
	}
	if req.GstRate != nil && (*req.GstRate < 0 || *req.GstRate > 100) {
		return "gstRate must be between 0 and 100"
	}
	if req.Unit != nil && !models.IsAllowedUnit(*req.Unit) {
		return "unit is not one of the allowed values"
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > models.MaxDescriptionLength {
		return "description must be at most 1000 characters"
	}
	return ""
}

func applyProductUpdate(product *models.Product, req *models.UpdateProductRequest) {
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.DiscountedPrice != nil {
		product.DiscountedPrice = req.DiscountedPrice
	}
	if req.GstRate != nil {
		product.GstRate = *req.GstRate
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	if req.Status != nil {
		product.Status = *req.Status
	}
}
