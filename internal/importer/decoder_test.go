package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

func TestDecodeCSV(t *testing.T) {
	data := []byte("name,price,description\nWidget,9.99,\"A, quoted description\"\nGadget,12.50,Plain\n")

	records, keys, err := Decode(data, models.ImportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "price", "description"}, keys)
	require.Len(t, records, 2)

	assert.Equal(t, 2, records[0].Number)
	assert.Equal(t, "Widget", records[0].Fields["name"])
	assert.Equal(t, "A, quoted description", records[0].Fields["description"])
	assert.Equal(t, 3, records[1].Number)
	assert.Equal(t, "Gadget", records[1].Fields["name"])
}

func TestDecodeCSVSkipsBlankLines(t *testing.T) {
	data := []byte("name,price\nWidget,9.99\n\n\nGadget,12.50\n")

	records, _, err := Decode(data, models.ImportFormatCSV)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Blank lines do not consume row numbers.
	assert.Equal(t, 2, records[0].Number)
	assert.Equal(t, 3, records[1].Number)
}

func TestDecodeCSVSkipsWhitespaceOnlyLines(t *testing.T) {
	data := []byte("name,price\nWidget,9.99\n   \n,\nGadget,12.50\n")

	records, _, err := Decode(data, models.ImportFormatCSV)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Whitespace-only and all-empty-field lines are blank too: no phantom
	// record, and the next row keeps its number.
	assert.Equal(t, 2, records[0].Number)
	assert.Equal(t, "Widget", records[0].Fields["name"])
	assert.Equal(t, 3, records[1].Number)
	assert.Equal(t, "Gadget", records[1].Fields["name"])
}

func TestDecodeCSVHeaderOnly(t *testing.T) {
	_, _, err := Decode([]byte("name,price\n"), models.ImportFormatCSV)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestDecodeEmptyInput(t *testing.T) {
	for _, format := range []models.ImportFormat{models.ImportFormatCSV, models.ImportFormatJSON} {
		_, _, err := Decode([]byte("  \n "), format)

		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr, "format %s", format)
	}
}

func TestDecodeJSONArray(t *testing.T) {
	data := []byte(`[{"name":"Widget","price":9.99},{"name":"Gadget","price":12.5}]`)

	records, keys, err := Decode(data, models.ImportFormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "price"}, keys)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Number)
	assert.Equal(t, 2, records[1].Number)
	assert.Equal(t, 9.99, records[0].Fields["price"])
}

func TestDecodeJSONSingleObject(t *testing.T) {
	records, keys, err := Decode([]byte(`{"name":"Widget","active":true}`), models.ImportFormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "active"}, keys)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Number)
	assert.Equal(t, true, records[0].Fields["active"])
}

func TestDecodeJSONEmptyArray(t *testing.T) {
	_, _, err := Decode([]byte(`[]`), models.ImportFormatJSON)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestDecodeXLSXRejected(t *testing.T) {
	_, _, err := Decode([]byte("PK\x03\x04fake-xlsx"), models.ImportFormatXLSX)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "not supported")
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, _, err := Decode([]byte("data"), models.ImportFormat("parquet"))

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}
