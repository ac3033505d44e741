package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/models"
)

// Event subjects published by the catalog service
const (
	SubjectImportCompleted = "catalog.import.completed"
	SubjectCommitCompleted = "catalog.commit.completed"
	SubjectStagingCleared  = "catalog.staging.cleared"
)

// CatalogEvent is the envelope for all catalog audit events
type CatalogEvent struct {
	EventID    string      `json:"eventId"`
	Subject    string      `json:"subject"`
	SupplierID string      `json:"supplierId"`
	ActorID    string      `json:"actorId,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Publisher publishes catalog audit events over NATS. Publishing is
// fire-and-forget; a lost event never fails the triggering request.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS at the given URL
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("catalog-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "catalog-events"),
	}, nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// PublishImportCompleted reports a finished spreadsheet ingestion
func (p *Publisher) PublishImportCompleted(ctx context.Context, supplierID, actorID string, summary *models.ParseSummary) {
	p.publish(SubjectImportCompleted, supplierID, actorID, summary)
}

// PublishCommitCompleted reports a finished staging commit
func (p *Publisher) PublishCommitCompleted(ctx context.Context, supplierID, actorID string, result *models.CommitResult) {
	p.publish(SubjectCommitCompleted, supplierID, actorID, result)
}

// PublishStagingCleared reports a supplier discarding staged rows
func (p *Publisher) PublishStagingCleared(ctx context.Context, supplierID, actorID string) {
	p.publish(SubjectStagingCleared, supplierID, actorID, nil)
}

func (p *Publisher) publish(subject, supplierID, actorID string, payload interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	event := CatalogEvent{
		EventID:    uuid.New().String(),
		Subject:    subject,
		SupplierID: supplierID,
		ActorID:    actorID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to marshal event")
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"subject":     subject,
			"supplier_id": supplierID,
		}).Warn("Failed to publish event")
		return
	}

	p.logger.WithFields(logrus.Fields{
		"subject":     subject,
		"supplier_id": supplierID,
		"event_id":    event.EventID,
	}).Debug("Published event")
}
