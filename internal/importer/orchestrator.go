package importer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

const (
	// PreviewRowLimit caps how many classified rows the preview materializes.
	// The full row set is still validated identically during commit.
	PreviewRowLimit = 10

	// DefaultRowTimeout bounds the catalog calls made for a single row.
	// A timeout fails that row only, never the job.
	DefaultRowTimeout = 15 * time.Second
)

// JobStore persists import jobs and their append-only row audit trail.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.ImportJob) error
	UpdateJob(ctx context.Context, job *models.ImportJob) error
	AppendRowAudit(ctx context.Context, audit *models.ImportRowAudit) error
}

// EventSink receives job lifecycle notifications. Implementations must
// tolerate being nil-checked by the orchestrator.
type EventSink interface {
	PublishImportCompleted(ctx context.Context, job *models.ImportJob)
	PublishPublication(ctx context.Context, tenantID string, productID uuid.UUID, status models.PublicationStatus, publishAt time.Time)
}

// PreviewResult is the side-effect-free preview of an import file.
type PreviewResult struct {
	Mappings        models.ColumnMappings `json:"mappings"`
	DetectedLocales []string              `json:"detectedLocales"`
	TotalRows       int                   `json:"totalRows"`
	Rows            []models.ImportRow    `json:"rows"`
}

// Orchestrator owns the import job lifecycle: it validates rows, drives the
// resolver, records the audit trail, and aggregates final counters. Rows are
// processed sequentially so that two rows targeting the same product get a
// well-defined last-writer-wins ordering.
type Orchestrator struct {
	store      JobStore
	resolver   *Resolver
	events     EventSink
	logger     *logrus.Entry
	rowTimeout time.Duration
}

func NewOrchestrator(store JobStore, resolver *Resolver, events EventSink, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		resolver:   resolver,
		events:     events,
		logger:     logger.WithField("component", "import-orchestrator"),
		rowTimeout: DefaultRowTimeout,
	}
}

// Preview decodes and classifies the file without touching any external
// state. All rows are counted; only the first PreviewRowLimit are returned.
func (o *Orchestrator) Preview(data []byte, format models.ImportFormat) (*PreviewResult, error) {
	records, keys, err := Decode(data, format)
	if err != nil {
		return nil, err
	}

	mappings, locales := InferMappings(keys, format, records[0].Fields)

	result := &PreviewResult{
		Mappings:        mappings,
		DetectedLocales: locales,
		TotalRows:       len(records),
	}
	for i, rec := range records {
		if i >= PreviewRowLimit {
			break
		}
		result.Rows = append(result.Rows, ClassifyRow(rec, mappings))
	}
	return result, nil
}

// SubmitParams carries a submitted batch.
type SubmitParams struct {
	TenantID        string
	Name            string
	Data            []byte
	Format          models.ImportFormat
	PublicationMode models.PublicationMode
	ScheduledAt     *time.Time
}

// Submit decodes the file, infers the schema, and persists a pending job.
// File-level failures surface immediately and no job is created. The
// returned records feed Run; callers may run commit in the background.
func (o *Orchestrator) Submit(ctx context.Context, params SubmitParams) (*models.ImportJob, []Record, error) {
	records, keys, err := Decode(params.Data, params.Format)
	if err != nil {
		return nil, nil, err
	}

	mappings, locales := InferMappings(keys, params.Format, records[0].Fields)

	mode := params.PublicationMode
	if mode == "" {
		mode = models.PublicationModeImmediate
	}

	job := &models.ImportJob{
		TenantID:        params.TenantID,
		Name:            params.Name,
		Format:          params.Format,
		PublicationMode: mode,
		ScheduledAt:     params.ScheduledAt,
		Mappings:        mappings,
		DetectedLocales: locales,
		TotalRows:       len(records),
		Status:          models.ImportStatusPending,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return nil, nil, err
	}
	return job, records, nil
}

// Run executes the commit stage: every row is validated, resolved, and
// audited in row-number order. A row's failure never stops subsequent rows.
// The job always reaches COMPLETED; failure lives in the counters and the
// audit trail.
func (o *Orchestrator) Run(ctx context.Context, job *models.ImportJob, records []Record) {
	log := o.logger.WithFields(logrus.Fields{"job_id": job.ID, "tenant_id": job.TenantID})

	now := time.Now()
	job.Status = models.ImportStatusProcessing
	job.StartedAt = &now
	if err := o.store.UpdateJob(ctx, job); err != nil {
		log.WithError(err).Error("Failed to mark job as processing")
	}

	for _, rec := range records {
		o.processRow(ctx, job, rec, log)
	}

	completed := time.Now()
	job.Status = models.ImportStatusCompleted
	job.CompletedAt = &completed
	if err := o.store.UpdateJob(ctx, job); err != nil {
		log.WithError(err).Error("Failed to mark job as completed")
	}

	log.WithFields(logrus.Fields{
		"processed": job.ProcessedCount,
		"failed":    job.FailedCount,
		"created":   job.CreatedCount,
		"updated":   job.UpdatedCount,
	}).Info("Import job completed")

	if o.events != nil {
		o.events.PublishImportCompleted(ctx, job)
	}
}

func (o *Orchestrator) processRow(ctx context.Context, job *models.ImportJob, rec Record, log *logrus.Entry) {
	audit := &models.ImportRowAudit{
		TenantID:  job.TenantID,
		JobID:     job.ID,
		RowNumber: rec.Number,
		RawData:   models.JSON(rec.Fields),
	}

	// Commit re-validates with the same rules as preview; a row that failed
	// the name rule fails here with the identical message text.
	row := ClassifyRow(rec, job.Mappings)
	if row.Classification == models.RowError {
		o.failRow(ctx, job, audit, row.Messages[0], log)
		return
	}

	name, attributes := buildAttributes(rec, job.Mappings)
	publishAt := effectivePublishAt(row, job)
	audit.PublishAt = publishAt

	rowCtx, cancel := context.WithTimeout(ctx, o.rowTimeout)
	resolution, err := o.resolver.Resolve(rowCtx, job.TenantID, row.Identity, name, attributes, publishAt)
	cancel()
	if err != nil {
		o.failRow(ctx, job, audit, err.Error(), log)
		return
	}

	audit.Status = models.RowOutcomeProcessed
	audit.AppliedDiff = resolution.AppliedDiff
	if !resolution.Created {
		identity := row.Identity
		audit.ResolvedIdentity = &identity
	}
	if len(resolution.SkippedSynced) > 0 {
		note := "Skipped synced fields: " + strings.Join(resolution.SkippedSynced, ", ")
		audit.Note = &note
	}

	job.ProcessedCount++
	if resolution.Created {
		job.CreatedCount++
	} else {
		job.UpdatedCount++
	}

	if o.events != nil {
		status := models.PublicationStatusPublished
		at := time.Now()
		if resolution.PublishAt != nil {
			status = models.PublicationStatusScheduled
			at = *resolution.PublishAt
		}
		o.events.PublishPublication(ctx, job.TenantID, resolution.ProductID, status, at)
	}

	if err := o.store.AppendRowAudit(ctx, audit); err != nil {
		log.WithError(err).WithField("row", rec.Number).Error("Failed to write row audit")
	}
}

func (o *Orchestrator) failRow(ctx context.Context, job *models.ImportJob, audit *models.ImportRowAudit, message string, log *logrus.Entry) {
	audit.Status = models.RowOutcomeFailed
	audit.ErrorMessage = &message

	job.FailedCount++
	job.Errors = append(job.Errors, models.ImportRowError{Row: audit.RowNumber, Message: message})

	log.WithField("row", audit.RowNumber).Warn("Import row failed: " + message)

	if err := o.store.AppendRowAudit(ctx, audit); err != nil {
		log.WithError(err).WithField("row", audit.RowNumber).Error("Failed to write row audit")
	}
}

// effectivePublishAt picks the row's publication instant: the explicit
// per-row date wins, then the job's scheduled date when the mode is
// scheduled. Nil means publish now.
func effectivePublishAt(row models.ImportRow, job *models.ImportJob) *time.Time {
	if row.PublishAt != nil {
		return row.PublishAt
	}
	if job.PublicationMode == models.PublicationModeScheduled && job.ScheduledAt != nil {
		return job.ScheduledAt
	}
	return nil
}

// buildAttributes splits a record into the candidate attribute map using the
// job's mappings. Translation values nest under "translations_<locale>"
// keyed by target field; identity and publication-date fields are control
// fields and stay out of the map.
func buildAttributes(rec Record, mappings models.ColumnMappings) (string, models.JSON) {
	name := ""
	attributes := make(models.JSON)

	for _, mapping := range mappings {
		raw, ok := rec.Fields[mapping.SourceKey]
		if !ok || raw == nil {
			continue
		}
		if s, isString := raw.(string); isString && s == "" {
			continue
		}

		if mapping.IsTranslation {
			key := "translations_" + mapping.Locale
			sub, _ := attributes[key].(models.JSON)
			if sub == nil {
				sub = make(models.JSON)
			}
			sub[mapping.TargetField] = raw
			attributes[key] = sub
			continue
		}

		if identityFields[mapping.TargetField] || publishDateFields[mapping.TargetField] {
			continue
		}

		value := coerceValue(raw, mapping.Type)
		if nameFields[mapping.TargetField] {
			name = valueToString(raw)
		}
		attributes[mapping.TargetField] = value
	}

	return name, attributes
}

// coerceValue types a delimited-text value per its mapping. Values that fail
// to parse are kept as text rather than dropped.
func coerceValue(raw interface{}, valueType models.ValueType) interface{} {
	s, isString := raw.(string)
	if !isString {
		return raw
	}
	switch valueType {
	case models.ValueTypeNumber:
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return parsed
		}
	case models.ValueTypeBoolean:
		if parsed, err := strconv.ParseBool(s); err == nil {
			return parsed
		}
	}
	return s
}
