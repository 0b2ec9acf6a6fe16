package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"catalog-import-service/internal/models"
)

// CatalogRepository is the catalog collaborator backing the resolver:
// product lookup/create/update, publication append, and the
// organization-level default attribute template.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindProductByIdentity returns (nil, nil) when the identity is not a valid
// id or no product matches; the import pipeline degrades such rows to the
// create path.
func (r *CatalogRepository) FindProductByIdentity(ctx context.Context, tenantID, identity string) (*models.Product, error) {
	productID, err := uuid.Parse(identity)
	if err != nil {
		return nil, nil
	}

	var product models.Product
	err = r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, productID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product with the given initial attributes.
func (r *CatalogRepository) CreateProduct(ctx context.Context, tenantID, name string, attributes models.JSON, templateID *string) (*models.Product, error) {
	product := &models.Product{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		Name:                name,
		Attributes:          attributes,
		AttributeTemplateID: templateID,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProductAttributes replaces a product's live attribute map.
func (r *CatalogRepository) UpdateProductAttributes(ctx context.Context, productID uuid.UUID, attributes models.JSON) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"attributes": attributes,
			"updated_at": time.Now(),
		}).Error
}

// AppendPublication writes one publication record. Publications are
// append-only; nothing ever deletes them.
func (r *CatalogRepository) AppendPublication(ctx context.Context, publication *models.ProductPublication) error {
	if publication.ID == uuid.Nil {
		publication.ID = uuid.New()
	}
	publication.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(publication).Error
}

// DefaultAttributeTemplateID reads the tenant's default attribute template.
// Missing settings are not an error; creates simply get no template.
func (r *CatalogRepository) DefaultAttributeTemplateID(ctx context.Context, tenantID string) (*string, error) {
	var settings models.OrgSettings
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return settings.DefaultAttributeTemplateID, nil
}
