package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

func csvMappings(t *testing.T, keys ...string) models.ColumnMappings {
	t.Helper()
	mappings, _ := InferMappings(keys, models.ImportFormatCSV, nil)
	return mappings
}

func TestClassifyRowMissingName(t *testing.T) {
	mappings := csvMappings(t, "name", "price")
	rec := Record{Number: 3, Fields: map[string]interface{}{"name": "", "price": "5.00"}}

	row := ClassifyRow(rec, mappings)

	assert.Equal(t, models.RowError, row.Classification)
	assert.Equal(t, []string{MsgMissingName}, row.Messages)
}

func TestClassifyRowErrorShortCircuits(t *testing.T) {
	// A missing name wins even when the id is also blank and the date is bad.
	mappings := csvMappings(t, "name", "id", "publish_date")
	rec := Record{Number: 2, Fields: map[string]interface{}{
		"name":         "",
		"id":           "",
		"publish_date": "not-a-date",
	}}

	row := ClassifyRow(rec, mappings)

	assert.Equal(t, models.RowError, row.Classification)
	assert.Equal(t, []string{MsgMissingName}, row.Messages)
}

func TestClassifyRowMissingIdentityWarns(t *testing.T) {
	mappings := csvMappings(t, "name", "id")
	rec := Record{Number: 2, Fields: map[string]interface{}{"name": "Widget", "id": ""}}

	row := ClassifyRow(rec, mappings)

	assert.Equal(t, models.RowWarning, row.Classification)
	assert.Contains(t, row.Messages, MsgNoProductID)
}

func TestClassifyRowNoIdentityColumnStaysValid(t *testing.T) {
	// A file without any id column creates products by design.
	mappings := csvMappings(t, "name", "price")
	rec := Record{Number: 2, Fields: map[string]interface{}{"name": "Widget", "price": "9.99"}}

	row := ClassifyRow(rec, mappings)

	assert.Equal(t, models.RowValid, row.Classification)
	assert.Equal(t, []string{MsgReadyToImport}, row.Messages)
}

func TestClassifyRowInvalidPublishDate(t *testing.T) {
	mappings := csvMappings(t, "name", "publish_date")
	rec := Record{Number: 2, Fields: map[string]interface{}{
		"name":         "Widget",
		"publish_date": "next tuesday",
	}}

	row := ClassifyRow(rec, mappings)

	assert.Equal(t, models.RowWarning, row.Classification)
	assert.Contains(t, row.Messages, MsgInvalidPublishDate)
	assert.Nil(t, row.PublishAt)
}

func TestClassifyRowExtractsPublishDate(t *testing.T) {
	mappings := csvMappings(t, "name", "publish_date")
	rec := Record{Number: 2, Fields: map[string]interface{}{
		"name":         "Widget",
		"publish_date": "2025-06-01T09:00:00",
	}}

	row := ClassifyRow(rec, mappings)

	assert.Equal(t, models.RowValid, row.Classification)
	require.NotNil(t, row.PublishAt)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), *row.PublishAt)
}

func TestClassifyRowExtractsIdentity(t *testing.T) {
	mappings := csvMappings(t, "name", "product_id")
	rec := Record{Number: 2, Fields: map[string]interface{}{
		"name":       "Widget",
		"product_id": "999",
	}}

	row := ClassifyRow(rec, mappings)

	assert.Equal(t, "999", row.Identity)
	assert.Equal(t, models.RowValid, row.Classification)
}

func TestClassifyRowNumericJSONIdentity(t *testing.T) {
	mappings, _ := InferMappings([]string{"name", "id"}, models.ImportFormatJSON, map[string]interface{}{
		"name": "Widget", "id": float64(999),
	})
	rec := Record{Number: 1, Fields: map[string]interface{}{"name": "Widget", "id": float64(999)}}

	row := ClassifyRow(rec, mappings)

	assert.Equal(t, "999", row.Identity)
}

func TestParseDateLayouts(t *testing.T) {
	for _, value := range []string{
		"2025-06-01T09:00:00Z",
		"2025-06-01T09:00:00",
		"2025-06-01 09:00:00",
		"2025-06-01",
		"06/01/2025",
	} {
		_, err := ParseDate(value)
		assert.NoError(t, err, "value %s", value)
	}

	_, err := ParseDate("June first")
	assert.Error(t, err)
}
