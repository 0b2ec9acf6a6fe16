package importer

import (
	"fmt"
	"strconv"
	"time"

	"catalog-import-service/internal/models"
)

// Validation messages. Preview and commit must emit identical text for the
// same finding so results correlate across both stages.
const (
	MsgMissingName        = "Missing product name"
	MsgNoProductID        = "No product ID - will create new product"
	MsgInvalidPublishDate = "Invalid publication date format"
	MsgReadyToImport      = "Ready to import"
)

var nameFields = map[string]bool{"name": true, "product_name": true}

var identityFields = map[string]bool{"id": true, "product_id": true}

// publishDateFields are the targets recognized as per-row publication dates.
var publishDateFields = map[string]bool{
	"publish_date":     true,
	"publish_at":       true,
	"publication_date": true,
	"available_at":     true,
	"date":             true,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ClassifyRow applies the per-row business rules against a raw record and
// the job's mappings. Error findings short-circuit; warnings accumulate.
func ClassifyRow(rec Record, mappings models.ColumnMappings) models.ImportRow {
	row := models.ImportRow{
		RowNumber: rec.Number,
		Data:      rec.Fields,
	}

	name := ""
	identity := ""
	hasIdentityColumn := false
	var publishAt *time.Time
	invalidDate := false

	for _, mapping := range mappings {
		if mapping.IsTranslation {
			continue
		}
		if identityFields[mapping.TargetField] {
			hasIdentityColumn = true
		}
		value := valueToString(rec.Fields[mapping.SourceKey])
		if value == "" {
			continue
		}
		switch {
		case nameFields[mapping.TargetField]:
			name = value
		case identityFields[mapping.TargetField]:
			identity = value
		case publishDateFields[mapping.TargetField]:
			if parsed, err := ParseDate(value); err == nil {
				publishAt = &parsed
			} else {
				invalidDate = true
			}
		}
	}

	row.Identity = identity
	row.PublishAt = publishAt

	if name == "" {
		row.Classification = models.RowError
		row.Messages = []string{MsgMissingName}
		return row
	}

	// The no-ID warning only fires when the file carries an identity column
	// that this row left blank. A file without an identity column is a pure
	// create batch and stays quiet.
	if hasIdentityColumn && identity == "" {
		row.Classification = models.RowWarning
		row.Messages = append(row.Messages, MsgNoProductID)
	}
	if invalidDate {
		row.Classification = models.RowWarning
		row.Messages = append(row.Messages, MsgInvalidPublishDate)
	}

	if row.Classification == "" {
		row.Classification = models.RowValid
		row.Messages = []string{MsgReadyToImport}
	}

	return row
}

// ParseDate parses a calendar date/time in any of the accepted layouts.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", value)
}

// valueToString renders a raw field value for identity and date extraction.
// Numeric JSON values print without a float suffix so that id 999 stays "999".
func valueToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
