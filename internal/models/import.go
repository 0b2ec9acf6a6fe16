package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatJSON ImportFormat = "json"
	// ImportFormatXLSX is recognized for template downloads only; decoding
	// binary spreadsheets is not supported and fails fast.
	ImportFormatXLSX ImportFormat = "xlsx"
)

// PublicationMode controls when imported changes become visible
type PublicationMode string

const (
	PublicationModeImmediate PublicationMode = "immediate"
	PublicationModeScheduled PublicationMode = "scheduled"
	PublicationModePerRow    PublicationMode = "per_row"
)

// ImportStatus represents the lifecycle status of an import job.
// There is no failed state: a job completes even if every row failed;
// failure is visible only in the counters and the row audit trail.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "PENDING"
	ImportStatusProcessing ImportStatus = "PROCESSING"
	ImportStatusCompleted  ImportStatus = "COMPLETED"
)

// ValueType is the inferred type of a source column
type ValueType string

const (
	ValueTypeText    ValueType = "text"
	ValueTypeNumber  ValueType = "number"
	ValueTypeDate    ValueType = "date"
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeImage   ValueType = "image"
)

// ColumnMapping maps one source key to one target representation.
// Computed once per job from the header and never mutated.
type ColumnMapping struct {
	SourceKey     string    `json:"sourceKey"`
	TargetField   string    `json:"targetField"`
	Type          ValueType `json:"type"`
	IsTranslation bool      `json:"isTranslation"`
	Locale        string    `json:"locale,omitempty"`
}

// ColumnMappings stores the ordered mapping list as JSONB
type ColumnMappings []ColumnMapping

func (m ColumnMappings) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *ColumnMappings) Scan(value interface{}) error {
	if value == nil {
		*m = make(ColumnMappings, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// RowClassification is the preview verdict for a single row
type RowClassification string

const (
	RowValid   RowClassification = "valid"
	RowWarning RowClassification = "warning"
	RowError   RowClassification = "error"
)

// ImportRow is the ephemeral preview representation of one source row.
// Row numbers are stable between preview and commit.
type ImportRow struct {
	RowNumber      int                    `json:"rowNumber"`
	Data           map[string]interface{} `json:"data"`
	Classification RowClassification      `json:"classification"`
	Messages       []string               `json:"messages"`
	Identity       string                 `json:"identity,omitempty"`
	PublishAt      *time.Time             `json:"publishAt,omitempty"`
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportRowErrors stores the per-row error list as JSONB
type ImportRowErrors []ImportRowError

func (e ImportRowErrors) Value() (driver.Value, error) {
	return json.Marshal(e)
}

func (e *ImportRowErrors) Scan(value interface{}) error {
	if value == nil {
		*e = make(ImportRowErrors, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, e)
}

// ImportJob represents one batch import operation. Mutated only by the
// orchestrator; immutable once completed.
type ImportJob struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	TenantID        string          `json:"tenantId" gorm:"not null;index:idx_import_jobs_tenant"`
	Name            string          `json:"name"`
	Format          ImportFormat    `json:"format" gorm:"not null"`
	PublicationMode PublicationMode `json:"publicationMode" gorm:"not null;default:'immediate'"`
	ScheduledAt     *time.Time      `json:"scheduledAt,omitempty"`
	Mappings        ColumnMappings  `json:"mappings" gorm:"type:jsonb"`
	DetectedLocales StringList      `json:"detectedLocales" gorm:"type:jsonb"`
	TotalRows       int             `json:"totalRows"`
	Status          ImportStatus    `json:"status" gorm:"not null;default:'PENDING';index"`
	ProcessedCount  int             `json:"processedCount"`
	FailedCount     int             `json:"failedCount"`
	CreatedCount    int             `json:"createdCount"`
	UpdatedCount    int             `json:"updatedCount"`
	Errors          ImportRowErrors `json:"errors,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// RowOutcome is the commit-time outcome of one row
type RowOutcome string

const (
	RowOutcomeProcessed RowOutcome = "processed"
	RowOutcomeFailed    RowOutcome = "failed"
)

// ImportRowAudit is the append-only record of one processed row.
// Created exactly once per row during commit; never mutated afterward.
// A nil ResolvedIdentity means a new product was created.
type ImportRowAudit struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	TenantID         string     `json:"tenantId" gorm:"not null;index"`
	JobID            uuid.UUID  `json:"jobId" gorm:"type:uuid;not null;index:idx_row_audits_job"`
	RowNumber        int        `json:"rowNumber" gorm:"not null"`
	RawData          JSON       `json:"rawData" gorm:"type:jsonb"`
	ResolvedIdentity *string    `json:"resolvedIdentity,omitempty"`
	PublishAt        *time.Time `json:"publishAt,omitempty"`
	Status           RowOutcome `json:"status" gorm:"not null"`
	ErrorMessage     *string    `json:"errorMessage,omitempty"`
	Note             *string    `json:"note,omitempty"`
	AppliedDiff      JSON       `json:"appliedDiff,omitempty" gorm:"type:jsonb"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// TableName returns the table name for the ImportJob model
func (ImportJob) TableName() string {
	return "import_jobs"
}

// TableName returns the table name for the ImportRowAudit model
func (ImportRowAudit) TableName() string {
	return "import_row_audits"
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ProductImportColumns returns the column definitions for product import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "id", Description: "Existing product ID - leave empty to create a new product", Required: false, Type: "uuid", Example: ""},
		{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Blue Cotton T-Shirt"},
		{Name: "price", Description: "Product price", Required: false, Type: "number", Example: "29.99"},
		{Name: "description", Description: "Product description", Required: false, Type: "string", Example: ""},
		{Name: "description_fr-FR", Description: "French description (translation column)", Required: false, Type: "string", Example: ""},
		{Name: "description_es-ES", Description: "Spanish description (translation column)", Required: false, Type: "string", Example: ""},
		{Name: "image_url", Description: "Primary image URL", Required: false, Type: "string", Example: ""},
		{Name: "is_active", Description: "Whether the product is active", Required: false, Type: "boolean", Example: "true"},
		{Name: "publish_date", Description: "Per-row publication date (ISO 8601)", Required: false, Type: "date", Example: "2025-06-01T09:00:00Z"},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}
