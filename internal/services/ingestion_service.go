package services

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"catalog-service/internal/events"
	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// IngestionService turns an uploaded spreadsheet into a fully validated
// staging area. Each upload replaces whatever the supplier had staged before.
type IngestionService struct {
	staging   repository.StagingRepositoryInterface
	validator *importer.Validator
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewIngestionService creates an ingestion service. publisher may be nil when
// eventing is disabled.
func NewIngestionService(staging repository.StagingRepositoryInterface, validator *importer.Validator, publisher *events.Publisher, logger *logrus.Logger) *IngestionService {
	return &IngestionService{
		staging:   staging,
		validator: validator,
		publisher: publisher,
		logger:    logger.WithField("component", "ingestion-service"),
	}
}

// Ingest parses the spreadsheet, validates every data row and replaces the
// supplier's staging area with the result. Invalid rows are staged alongside
// valid ones; only a structurally unreadable file fails the call, wrapped in
// importer.ErrFormat.
func (s *IngestionService) Ingest(ctx context.Context, supplierID, actorID string, file io.Reader) (*models.ParseSummary, error) {
	output, err := importer.Parse(file)
	if err != nil {
		return nil, err
	}

	summary := &models.ParseSummary{
		ProcessedRows: len(output.Rows),
		SkippedRows:   output.SkippedRows,
	}

	rows := make([]*models.StagedRow, 0, len(output.Rows))
	for _, raw := range output.Rows {
		row := s.validator.Validate(ctx, raw, supplierID)
		if row.Status == models.RowStatusValid {
			summary.ValidRows++
		} else {
			summary.InvalidRows++
		}
		rows = append(rows, row)
	}

	if err := s.staging.ReplaceAll(ctx, supplierID, rows); err != nil {
		return nil, fmt.Errorf("failed to stage rows: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"supplier_id":    supplierID,
		"processed_rows": summary.ProcessedRows,
		"valid_rows":     summary.ValidRows,
		"invalid_rows":   summary.InvalidRows,
		"skipped_rows":   summary.SkippedRows,
	}).Info("Spreadsheet ingested")

	if s.publisher != nil {
		s.publisher.PublishImportCompleted(ctx, supplierID, actorID, summary)
	}

	return summary, nil
}
