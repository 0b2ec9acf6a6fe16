package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

// fakeCatalog is an in-memory catalog collaborator.
type fakeCatalog struct {
	products     map[string]*models.Product
	publications []*models.ProductPublication
	findErr      error
	updateErr    error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[string]*models.Product)}
}

func (f *fakeCatalog) addProduct(tenantID string, attributes models.JSON, synced ...string) *models.Product {
	product := &models.Product{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         "Existing",
		Attributes:   attributes,
		SyncedFields: models.StringList(synced),
	}
	f.products[product.ID.String()] = product
	return product
}

func (f *fakeCatalog) FindProductByIdentity(ctx context.Context, tenantID, identity string) (*models.Product, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	product, ok := f.products[identity]
	if !ok {
		return nil, nil
	}
	return product, nil
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, tenantID, name string, attributes models.JSON, templateID *string) (*models.Product, error) {
	product := &models.Product{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		Name:                name,
		Attributes:          attributes,
		AttributeTemplateID: templateID,
	}
	f.products[product.ID.String()] = product
	return product, nil
}

func (f *fakeCatalog) UpdateProductAttributes(ctx context.Context, productID uuid.UUID, attributes models.JSON) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if product, ok := f.products[productID.String()]; ok {
		product.Attributes = attributes
	}
	return nil
}

func (f *fakeCatalog) AppendPublication(ctx context.Context, publication *models.ProductPublication) error {
	f.publications = append(f.publications, publication)
	return nil
}

type fakeTemplates struct {
	id    *string
	calls int
}

func (f *fakeTemplates) DefaultAttributeTemplateID(ctx context.Context, tenantID string) (*string, error) {
	f.calls++
	return f.id, nil
}

func strPtr(s string) *string { return &s }

func TestResolveImmediateUpdateMergesShallow(t *testing.T) {
	catalog := newFakeCatalog()
	existing := catalog.addProduct("t1", models.JSON{"color": "blue", "size": "M"})
	resolver := NewResolver(catalog, &fakeTemplates{})

	res, err := resolver.Resolve(context.Background(), "t1", existing.ID.String(), "Existing",
		models.JSON{"color": "red"}, nil)
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, existing.ID, res.ProductID)
	assert.Equal(t, models.JSON{"color": "red", "size": "M"}, existing.Attributes)

	require.Len(t, catalog.publications, 1)
	assert.Equal(t, models.PublicationStatusPublished, catalog.publications[0].Status)
	assert.Equal(t, models.JSON{"color": "red", "size": "M"}, catalog.publications[0].Payload)
}

func TestResolveMergeIsIdempotent(t *testing.T) {
	catalog := newFakeCatalog()
	existing := catalog.addProduct("t1", models.JSON{"color": "blue", "size": "M"})
	resolver := NewResolver(catalog, &fakeTemplates{})

	payload := models.JSON{"color": "red"}
	_, err := resolver.Resolve(context.Background(), "t1", existing.ID.String(), "Existing", payload, nil)
	require.NoError(t, err)
	first := existing.Attributes

	_, err = resolver.Resolve(context.Background(), "t1", existing.ID.String(), "Existing", payload, nil)
	require.NoError(t, err)

	assert.Equal(t, first, existing.Attributes)
}

func TestResolveTranslationSubMapReplacedWholesale(t *testing.T) {
	catalog := newFakeCatalog()
	existing := catalog.addProduct("t1", models.JSON{
		"translations_fr-FR": models.JSON{"description": "ancien", "title": "ancien titre"},
	})
	resolver := NewResolver(catalog, &fakeTemplates{})

	_, err := resolver.Resolve(context.Background(), "t1", existing.ID.String(), "Existing",
		models.JSON{"translations_fr-FR": models.JSON{"description": "nouveau"}}, nil)
	require.NoError(t, err)

	// Shallow merge: the old title does not survive inside the sub-map.
	assert.Equal(t, models.JSON{
		"translations_fr-FR": models.JSON{"description": "nouveau"},
	}, existing.Attributes)
}

func TestResolveScheduledUpdateLeavesLiveAttributesUntouched(t *testing.T) {
	catalog := newFakeCatalog()
	existing := catalog.addProduct("t1", models.JSON{"color": "blue"})
	resolver := NewResolver(catalog, &fakeTemplates{})

	publishAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	res, err := resolver.Resolve(context.Background(), "t1", existing.ID.String(), "Existing",
		models.JSON{"color": "red"}, &publishAt)
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, models.JSON{"color": "blue"}, existing.Attributes)

	require.Len(t, catalog.publications, 1)
	pub := catalog.publications[0]
	assert.Equal(t, models.PublicationStatusScheduled, pub.Status)
	assert.Equal(t, publishAt, pub.PublishAt)
	// The scheduled payload carries the merged map forward.
	assert.Equal(t, models.JSON{"color": "red"}, pub.Payload)
}

func TestResolveUnknownIdentityCreates(t *testing.T) {
	catalog := newFakeCatalog()
	resolver := NewResolver(catalog, &fakeTemplates{})

	res, err := resolver.Resolve(context.Background(), "t1", "999", "Widget",
		models.JSON{"price": 9.99}, nil)
	require.NoError(t, err)

	assert.True(t, res.Created)
	product := catalog.products[res.ProductID.String()]
	require.NotNil(t, product)
	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, models.JSON{"price": 9.99}, product.Attributes)
}

func TestResolveImmediateCreateAssignsTemplate(t *testing.T) {
	catalog := newFakeCatalog()
	templates := &fakeTemplates{id: strPtr("tpl-default")}
	resolver := NewResolver(catalog, templates)

	res, err := resolver.Resolve(context.Background(), "t1", "", "Widget", models.JSON{"price": 9.99}, nil)
	require.NoError(t, err)

	product := catalog.products[res.ProductID.String()]
	require.NotNil(t, product.AttributeTemplateID)
	assert.Equal(t, "tpl-default", *product.AttributeTemplateID)
	assert.Equal(t, 1, templates.calls)
}

func TestResolveDeferredCreateKeepsAttributesEmpty(t *testing.T) {
	catalog := newFakeCatalog()
	templates := &fakeTemplates{id: strPtr("tpl-default")}
	resolver := NewResolver(catalog, templates)

	publishAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	res, err := resolver.Resolve(context.Background(), "t1", "", "Widget",
		models.JSON{"price": 9.99}, &publishAt)
	require.NoError(t, err)

	product := catalog.products[res.ProductID.String()]
	assert.Empty(t, product.Attributes)
	assert.Nil(t, product.AttributeTemplateID)
	assert.Equal(t, 0, templates.calls)

	require.Len(t, catalog.publications, 1)
	assert.Equal(t, models.PublicationStatusScheduled, catalog.publications[0].Status)
	assert.Equal(t, models.JSON{"price": 9.99}, catalog.publications[0].Payload)
}

func TestResolveCreateWithoutNameFails(t *testing.T) {
	resolver := NewResolver(newFakeCatalog(), &fakeTemplates{})

	_, err := resolver.Resolve(context.Background(), "t1", "", "", models.JSON{"price": 9.99}, nil)

	require.Error(t, err)
	assert.Equal(t, MsgMissingName, err.Error())
}

func TestResolveSkipsSyncedFields(t *testing.T) {
	catalog := newFakeCatalog()
	existing := catalog.addProduct("t1", models.JSON{"price": 10.0, "stock": 5.0}, "price")
	resolver := NewResolver(catalog, &fakeTemplates{})

	res, err := resolver.Resolve(context.Background(), "t1", existing.ID.String(), "Existing",
		models.JSON{"price": 99.0, "stock": 7.0}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"price"}, res.SkippedSynced)
	assert.Equal(t, models.JSON{"price": 10.0, "stock": 7.0}, existing.Attributes)
}

func TestResolveLookupFailurePropagates(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.findErr = errors.New("catalog timeout")
	resolver := NewResolver(catalog, &fakeTemplates{})

	_, err := resolver.Resolve(context.Background(), "t1", "999", "Widget", models.JSON{}, nil)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.ErrorContains(t, err, "catalog timeout")
}
