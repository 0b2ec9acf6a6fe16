package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// StringList type for PostgreSQL JSONB (array of strings)
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = make(StringList, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Product represents a catalog product entity.
// Translation data lives inside Attributes under "translations_<locale>"
// sub-maps; the import pipeline treats the map as opaque apart from the
// top-level merge rule.
type Product struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	TenantID            string     `json:"tenantId" gorm:"not null;index:idx_products_tenant_id"`
	Name                string     `json:"name" gorm:"not null"`
	Attributes          JSON       `json:"attributes" gorm:"type:jsonb"`
	AttributeTemplateID *string    `json:"attributeTemplateId,omitempty"`
	SyncedFields        StringList `json:"syncedFields,omitempty" gorm:"type:jsonb"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// PublicationStatus represents the state of a product publication
type PublicationStatus string

const (
	PublicationStatusPublished PublicationStatus = "published"
	PublicationStatusScheduled PublicationStatus = "scheduled"
)

// ProductPublication represents one change set awaiting or having taken
// effect. A product accrues publications over time; the import pipeline only
// appends, never deletes.
type ProductPublication struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primary_key"`
	TenantID  string            `json:"tenantId" gorm:"not null;index"`
	ProductID uuid.UUID         `json:"productId" gorm:"type:uuid;not null;index"`
	Status    PublicationStatus `json:"status" gorm:"not null"`
	PublishAt time.Time         `json:"publishAt" gorm:"not null;index"`
	Payload   JSON              `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"createdAt"`
}

// OrgSettings holds organization-level catalog settings. The default
// attribute template is handed to the resolver explicitly rather than looked
// up ambiently during row processing.
type OrgSettings struct {
	ID                         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	TenantID                   string    `json:"tenantId" gorm:"not null;uniqueIndex"`
	DefaultAttributeTemplateID *string   `json:"defaultAttributeTemplateId,omitempty"`
	CreatedAt                  time.Time `json:"createdAt"`
	UpdatedAt                  time.Time `json:"updatedAt"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details *JSON  `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the ProductPublication model
func (ProductPublication) TableName() string {
	return "product_publications"
}

// TableName returns the table name for the OrgSettings model
func (OrgSettings) TableName() string {
	return "org_settings"
}
