package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

const (
	SubjectImportCompleted  = "catalog.import.completed"
	SubjectProductPublished = "catalog.product.published"
	SubjectProductScheduled = "catalog.product.scheduled"
)

// Publisher emits catalog import events over NATS. All publish methods are
// nil-safe so the service runs unchanged when NATS is not configured.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS_URL.
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("catalog-import-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "import-events"),
	}, nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		_ = p.conn.Drain()
	}
}

// PublishImportCompleted publishes the final job counters once the commit
// stage finishes.
func (p *Publisher) PublishImportCompleted(ctx context.Context, job *models.ImportJob) {
	p.publish(SubjectImportCompleted, map[string]interface{}{
		"jobId":     job.ID,
		"tenantId":  job.TenantID,
		"totalRows": job.TotalRows,
		"processed": job.ProcessedCount,
		"failed":    job.FailedCount,
		"created":   job.CreatedCount,
		"updated":   job.UpdatedCount,
	})
}

// PublishPublication publishes one appended product publication.
func (p *Publisher) PublishPublication(ctx context.Context, tenantID string, productID uuid.UUID, status models.PublicationStatus, publishAt time.Time) {
	subject := SubjectProductPublished
	if status == models.PublicationStatusScheduled {
		subject = SubjectProductScheduled
	}
	p.publish(subject, map[string]interface{}{
		"productId": productID,
		"tenantId":  tenantID,
		"status":    status,
		"publishAt": publishAt,
	})
}

func (p *Publisher) publish(subject string, payload map[string]interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	payload["timestamp"] = time.Now().UTC()

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to marshal event payload")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}
