package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/clients"
	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
)

// maxUploadSize caps spreadsheet and image uploads at 10MB
const maxUploadSize = 10 << 20

// ImportHandler exposes the bulk catalog ingestion surface: template
// downloads, spreadsheet uploads, staged row review and the final commit
type ImportHandler struct {
	ingestion  *services.IngestionService
	staging    *services.StagingService
	commit     *services.CommitService
	templates  *importer.TemplateGenerator
	imageStore clients.ImageStoreInterface
	pages      PageLimits
	logger     *logrus.Entry
}

// NewImportHandler creates an import handler. imageStore may be nil when the
// image storage integration is disabled.
func NewImportHandler(ingestion *services.IngestionService, staging *services.StagingService, commit *services.CommitService, templates *importer.TemplateGenerator, imageStore clients.ImageStoreInterface, pages PageLimits, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		ingestion:  ingestion,
		staging:    staging,
		commit:     commit,
		templates:  templates,
		imageStore: imageStore,
		pages:      pages,
		logger:     logger.WithField("component", "import-handler"),
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

func actorID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetTemplate downloads the import spreadsheet
// @Summary Download the catalog import template
// @Description mode=new returns an empty template; mode=old returns the supplier's current catalog prefilled for bulk editing
// @Tags import
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param supplierId path string true "Supplier ID"
// @Param mode query string false "Template mode (new or old)" default(new)
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/template [get]
func (h *ImportHandler) GetTemplate(c *gin.Context) {
	supplierID := c.Param("supplierId")

	mode := importer.TemplateMode(c.DefaultQuery("mode", string(importer.TemplateModeNew)))
	if mode != importer.TemplateModeNew && mode != importer.TemplateModeOld {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "mode must be 'new' or 'old'")
		return
	}

	f, err := h.templates.Generate(c.Request.Context(), mode, supplierID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate template")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate template")
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("catalog_%s_%s.xlsx", mode, time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := f.Write(c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to stream template")
	}
}

// UploadSpreadsheet ingests a catalog spreadsheet into staging
// @Summary Upload a catalog spreadsheet
// @Description Parses and validates every row, replacing the supplier's staging area with the result
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param file formData file true "Spreadsheet (.xlsx)"
// @Success 200 {object} models.ImportResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/import [post]
func (h *ImportHandler) UploadSpreadsheet(c *gin.Context) {
	supplierID := c.Param("supplierId")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	summary, err := h.ingestion.Ingest(c.Request.Context(), supplierID, actorID(c), file)
	if err != nil {
		if errors.Is(err, importer.ErrFormat) {
			respondError(c, http.StatusBadRequest, "FORMAT_ERROR", err.Error())
			return
		}
		h.logger.WithError(err).WithField("filename", header.Filename).Error("Ingestion failed")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process spreadsheet")
		return
	}

	message := fmt.Sprintf("Processed %d rows: %d valid, %d invalid, %d skipped",
		summary.ProcessedRows, summary.ValidRows, summary.InvalidRows, summary.SkippedRows)
	c.JSON(http.StatusOK, models.ImportResponse{
		Success: true,
		Data:    summary,
		Message: &message,
	})
}

// ListRows returns a page of staged rows
// @Summary List staged rows
// @Tags import
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param status query string false "Filter by row status"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Rows per page" default(20)
// @Success 200 {object} models.StagedRowListResponse
// @Router /suppliers/{supplierId}/catalog/rows [get]
func (h *ImportHandler) ListRows(c *gin.Context) {
	supplierID := c.Param("supplierId")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	page, limit = h.pages.clamp(page, limit)
	opts := repository.ListOptions{
		Page:      page,
		Limit:     limit,
		SortBy:    c.DefaultQuery("sortBy", "row_index"),
		SortOrder: c.DefaultQuery("sortOrder", "ASC"),
	}
	if status := c.Query("status"); status != "" {
		rowStatus := models.RowStatus(status)
		opts.Status = &rowStatus
	}

	rows, total, err := h.staging.List(c.Request.Context(), supplierID, opts)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list staged rows")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list staged rows")
		return
	}

	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, models.StagedRowListResponse{
		Success: true,
		Data:    rows,
		Pagination: &models.PaginationInfo{
			Page:        opts.Page,
			Limit:       opts.Limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     opts.Page < totalPages,
			HasPrevious: opts.Page > 1,
		},
	})
}

// GetRow returns one staged row
// @Summary Get a staged row
// @Tags import
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param rowId path string true "Staged row ID"
// @Success 200 {object} models.StagedRowResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/rows/{rowId} [get]
func (h *ImportHandler) GetRow(c *gin.Context) {
	supplierID := c.Param("supplierId")
	rowID, err := uuid.Parse(c.Param("rowId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid row id")
		return
	}

	row, err := h.staging.GetRow(c.Request.Context(), supplierID, rowID)
	if err != nil {
		h.respondRowError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StagedRowResponse{Success: true, Data: row})
}

// UpdateRow applies a partial edit to a staged row and re-validates it
// @Summary Update a staged row
// @Description Only catalog fields may be edited; the row is re-validated after the update
// @Tags import
// @Accept json
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param rowId path string true "Staged row ID"
// @Success 200 {object} models.StagedRowResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/rows/{rowId} [patch]
func (h *ImportHandler) UpdateRow(c *gin.Context) {
	supplierID := c.Param("supplierId")
	rowID, err := uuid.Parse(c.Param("rowId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid row id")
		return
	}

	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if len(patch) == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "update body is empty")
		return
	}

	row, err := h.staging.UpdateRow(c.Request.Context(), supplierID, rowID, patch)
	if err != nil {
		h.respondRowError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StagedRowResponse{Success: true, Data: row})
}

// UploadRowImage uploads an image file and attaches it to a staged row
// @Summary Upload an image for a staged row
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param rowId path string true "Staged row ID"
// @Param file formData file true "Image file"
// @Success 200 {object} models.StagedRowResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/rows/{rowId}/images/upload [post]
func (h *ImportHandler) UploadRowImage(c *gin.Context) {
	supplierID := c.Param("supplierId")
	rowID, err := uuid.Parse(c.Param("rowId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid row id")
		return
	}
	if h.imageStore == nil {
		respondError(c, http.StatusServiceUnavailable, "IMAGE_STORE_UNAVAILABLE", "image storage is not configured")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	uploaded, err := h.imageStore.Upload(c.Request.Context(), file, header.Filename, "catalog/"+supplierID)
	if err != nil {
		h.logger.WithError(err).Error("Image upload failed")
		respondError(c, http.StatusBadGateway, "IMAGE_STORE_ERROR", "Failed to store image")
		return
	}

	row, err := h.staging.AttachImages(c.Request.Context(), supplierID, rowID, []models.StagedImage{{
		URL:         uploaded.URL,
		ExternalRef: uploaded.ExternalRef,
	}})
	if err != nil {
		h.respondRowError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StagedRowResponse{Success: true, Data: row})
}

// AttachRowImages attaches already-uploaded images to a staged row
// @Summary Attach images to a staged row
// @Tags import
// @Accept json
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param rowId path string true "Staged row ID"
// @Param request body models.AttachImagesRequest true "Images to attach"
// @Success 200 {object} models.StagedRowResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/rows/{rowId}/images [post]
func (h *ImportHandler) AttachRowImages(c *gin.Context) {
	supplierID := c.Param("supplierId")
	rowID, err := uuid.Parse(c.Param("rowId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid row id")
		return
	}

	var req models.AttachImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	row, err := h.staging.AttachImages(c.Request.Context(), supplierID, rowID, req.Images)
	if err != nil {
		h.respondRowError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StagedRowResponse{Success: true, Data: row})
}

// SetRowMainImage marks one image of a staged row as main
// @Summary Set the main image of a staged row
// @Tags import
// @Accept json
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param rowId path string true "Staged row ID"
// @Param request body models.SetMainImageRequest true "Image reference"
// @Success 200 {object} models.StagedRowResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/rows/{rowId}/images/main [put]
func (h *ImportHandler) SetRowMainImage(c *gin.Context) {
	supplierID := c.Param("supplierId")
	rowID, err := uuid.Parse(c.Param("rowId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid row id")
		return
	}

	var req models.SetMainImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	row, err := h.staging.SetMainImage(c.Request.Context(), supplierID, rowID, req.ImageRef)
	if err != nil {
		h.respondRowError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StagedRowResponse{Success: true, Data: row})
}

// RemoveRowImage removes one image from a staged row
// @Summary Remove an image from a staged row
// @Tags import
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param rowId path string true "Staged row ID"
// @Param imageRef path string true "Image external reference or URL"
// @Success 200 {object} models.StagedRowResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/rows/{rowId}/images/{imageRef} [delete]
func (h *ImportHandler) RemoveRowImage(c *gin.Context) {
	supplierID := c.Param("supplierId")
	rowID, err := uuid.Parse(c.Param("rowId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid row id")
		return
	}

	row, err := h.staging.RemoveImage(c.Request.Context(), supplierID, rowID, c.Param("imageRef"))
	if err != nil {
		h.respondRowError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StagedRowResponse{Success: true, Data: row})
}

// ClearStaging discards every staged row of the supplier
// @Summary Clear the staging area
// @Tags import
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Success 200 {object} models.SuccessResponse
// @Router /suppliers/{supplierId}/catalog/rows [delete]
func (h *ImportHandler) ClearStaging(c *gin.Context) {
	supplierID := c.Param("supplierId")

	if err := h.staging.Clear(c.Request.Context(), supplierID, actorID(c)); err != nil {
		h.logger.WithError(err).Error("Failed to clear staging")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clear staging")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: strPtr("Staging cleared")})
}

// ConfirmImport commits staged rows into the production catalog
// @Summary Commit staged rows
// @Description Creates or updates catalog products from staged rows in pages; failures are isolated per row
// @Tags import
// @Accept json
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Param request body services.CommitOptions false "Commit options"
// @Success 200 {object} models.CommitResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /suppliers/{supplierId}/catalog/confirm [post]
func (h *ImportHandler) ConfirmImport(c *gin.Context) {
	supplierID := c.Param("supplierId")

	var opts services.CommitOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	result, err := h.commit.Commit(c.Request.Context(), supplierID, actorID(c), opts)
	if err != nil {
		h.logger.WithError(err).Error("Commit aborted")
		c.JSON(http.StatusInternalServerError, models.CommitResponse{
			Success: false,
			Data:    result,
			Message: strPtr("Commit aborted: " + err.Error()),
		})
		return
	}

	message := "Catalog updated"
	if result.Failed > 0 {
		message = "Catalog processed with some errors"
	}
	c.JSON(http.StatusOK, models.CommitResponse{
		Success: true,
		Data:    result,
		Message: &message,
	})
}

// GetStatus returns the staged row counts for the supplier
// @Summary Staging status summary
// @Tags import
// @Produce json
// @Param supplierId path string true "Supplier ID"
// @Success 200 {object} models.StagingSummaryResponse
// @Router /suppliers/{supplierId}/catalog/status [get]
func (h *ImportHandler) GetStatus(c *gin.Context) {
	supplierID := c.Param("supplierId")

	summary, err := h.staging.Summary(c.Request.Context(), supplierID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load staging summary")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load staging summary")
		return
	}
	c.JSON(http.StatusOK, models.StagingSummaryResponse{Success: true, Data: summary})
}

func (h *ImportHandler) respondRowError(c *gin.Context, err error) {
	var fieldErr *services.FieldNotAllowedError
	var valueErr *services.InvalidFieldValueError
	switch {
	case errors.Is(err, services.ErrRowNotFound):
		respondError(c, http.StatusNotFound, "ROW_NOT_FOUND", "Staged row not found")
	case errors.Is(err, services.ErrImageNotFound):
		respondError(c, http.StatusNotFound, "IMAGE_NOT_FOUND", "Image not found on staged row")
	case errors.As(err, &fieldErr):
		respondError(c, http.StatusBadRequest, "FIELD_NOT_ALLOWED", fieldErr.Error())
	case errors.As(err, &valueErr):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", valueErr.Error())
	default:
		h.logger.WithError(err).Error("Staged row operation failed")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed")
	}
}

func strPtr(s string) *string { return &s }
