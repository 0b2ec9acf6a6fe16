package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalog-import-service/internal/models"
)

// Catalog is the catalog collaborator consumed by the resolver. Calls are
// expected to enforce their own bounded timeouts; a timeout surfaces as an
// ordinary error and fails only the row in flight.
type Catalog interface {
	// FindProductByIdentity returns (nil, nil) when no product matches.
	FindProductByIdentity(ctx context.Context, tenantID, identity string) (*models.Product, error)
	CreateProduct(ctx context.Context, tenantID, name string, attributes models.JSON, templateID *string) (*models.Product, error)
	UpdateProductAttributes(ctx context.Context, productID uuid.UUID, attributes models.JSON) error
	AppendPublication(ctx context.Context, publication *models.ProductPublication) error
}

// TemplateProvider supplies the organization's default attribute-template
// id. It is an explicit resolver dependency rather than an ambient lookup.
type TemplateProvider interface {
	DefaultAttributeTemplateID(ctx context.Context, tenantID string) (*string, error)
}

// Resolution describes what the resolver did for one row.
type Resolution struct {
	ProductID     uuid.UUID
	Created       bool
	AppliedDiff   models.JSON
	SkippedSynced []string
	PublishAt     *time.Time
}

// Resolver decides create-vs-update, merges attributes, and commits or
// schedules the resulting change set.
type Resolver struct {
	catalog   Catalog
	templates TemplateProvider
	now       func() time.Time
}

func NewResolver(catalog Catalog, templates TemplateProvider) *Resolver {
	return &Resolver{
		catalog:   catalog,
		templates: templates,
		now:       time.Now,
	}
}

// Resolve commits one row. A nil publishAt means the change takes effect
// immediately; otherwise only a scheduled publication is written and the
// product's live attributes stay untouched.
func (r *Resolver) Resolve(ctx context.Context, tenantID, identity, name string, attributes models.JSON, publishAt *time.Time) (*Resolution, error) {
	var existing *models.Product
	if identity != "" {
		found, err := r.catalog.FindProductByIdentity(ctx, tenantID, identity)
		if err != nil {
			return nil, &ResolutionError{Message: "failed to look up product", Cause: err}
		}
		// An identity that resolves to nothing is not an error: the row
		// silently degrades to the create path.
		existing = found
	}

	if existing != nil {
		return r.update(ctx, tenantID, existing, attributes, publishAt)
	}
	return r.create(ctx, tenantID, name, attributes, publishAt)
}

func (r *Resolver) update(ctx context.Context, tenantID string, product *models.Product, attributes models.JSON, publishAt *time.Time) (*Resolution, error) {
	incoming, skipped := stripSyncedFields(attributes, product.SyncedFields)
	merged := mergeAttributes(product.Attributes, incoming)

	resolution := &Resolution{
		ProductID:     product.ID,
		AppliedDiff:   incoming,
		SkippedSynced: skipped,
		PublishAt:     publishAt,
	}

	if publishAt == nil {
		if err := r.catalog.UpdateProductAttributes(ctx, product.ID, merged); err != nil {
			return nil, &ResolutionError{Message: "failed to update product attributes", Cause: err}
		}
		if err := r.appendPublication(ctx, tenantID, product.ID, models.PublicationStatusPublished, r.now(), merged); err != nil {
			return nil, err
		}
		return resolution, nil
	}

	// Deferred: the live attributes stay as they are, but the scheduled
	// payload carries the merged map so previously-set attributes ride
	// forward into the next publication.
	if err := r.appendPublication(ctx, tenantID, product.ID, models.PublicationStatusScheduled, *publishAt, merged); err != nil {
		return nil, err
	}
	return resolution, nil
}

func (r *Resolver) create(ctx context.Context, tenantID, name string, attributes models.JSON, publishAt *time.Time) (*Resolution, error) {
	if name == "" {
		return nil, &ResolutionError{Message: MsgMissingName}
	}

	var templateID *string
	if publishAt == nil && r.templates != nil {
		id, err := r.templates.DefaultAttributeTemplateID(ctx, tenantID)
		if err != nil {
			return nil, &ResolutionError{Message: "failed to read default attribute template", Cause: err}
		}
		templateID = id
	}

	// New products start with an empty attribute map; the payload reaches
	// the live record only through the immediate-publication path below.
	product, err := r.catalog.CreateProduct(ctx, tenantID, name, models.JSON{}, templateID)
	if err != nil {
		return nil, &ResolutionError{Message: "failed to create product", Cause: err}
	}

	resolution := &Resolution{
		ProductID:   product.ID,
		Created:     true,
		AppliedDiff: attributes,
		PublishAt:   publishAt,
	}

	if publishAt == nil {
		if err := r.catalog.UpdateProductAttributes(ctx, product.ID, attributes); err != nil {
			return nil, &ResolutionError{Message: "failed to apply product attributes", Cause: err}
		}
		if err := r.appendPublication(ctx, tenantID, product.ID, models.PublicationStatusPublished, r.now(), attributes); err != nil {
			return nil, err
		}
		return resolution, nil
	}

	if err := r.appendPublication(ctx, tenantID, product.ID, models.PublicationStatusScheduled, *publishAt, attributes); err != nil {
		return nil, err
	}
	return resolution, nil
}

func (r *Resolver) appendPublication(ctx context.Context, tenantID string, productID uuid.UUID, status models.PublicationStatus, at time.Time, payload models.JSON) error {
	publication := &models.ProductPublication{
		TenantID:  tenantID,
		ProductID: productID,
		Status:    status,
		PublishAt: at,
		Payload:   payload,
	}
	if err := r.catalog.AppendPublication(ctx, publication); err != nil {
		return &ResolutionError{Message: fmt.Sprintf("failed to append %s publication", status), Cause: err}
	}
	return nil
}

// mergeAttributes merges incoming on top of existing. The merge is shallow:
// existing top-level keys absent from incoming are preserved, incoming keys
// overwrite, and a translation sub-map replaces the prior sub-map for its
// locale wholesale.
func mergeAttributes(existing, incoming models.JSON) models.JSON {
	merged := make(models.JSON, len(existing)+len(incoming))
	for key, value := range existing {
		merged[key] = value
	}
	for key, value := range incoming {
		merged[key] = value
	}
	return merged
}

// stripSyncedFields removes attributes owned by a live external integration
// from the incoming payload. Skipped keys are reported on the row audit.
func stripSyncedFields(attributes models.JSON, synced models.StringList) (models.JSON, []string) {
	if len(synced) == 0 {
		return attributes, nil
	}
	protected := make(map[string]bool, len(synced))
	for _, field := range synced {
		protected[strings.ToLower(field)] = true
	}

	kept := make(models.JSON, len(attributes))
	var skipped []string
	for key, value := range attributes {
		if protected[strings.ToLower(key)] {
			skipped = append(skipped, key)
			continue
		}
		kept[key] = value
	}
	sort.Strings(skipped)
	return kept, skipped
}
