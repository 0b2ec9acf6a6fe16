package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"catalog-import-service/internal/models"
)

// Record is one flat source row. For delimited input the field values are
// strings; for structured input they are the native decoded scalars.
type Record struct {
	// Number is the user-visible row number, stable between preview and
	// commit: 2-based for CSV (the header is line 1, blank lines are not
	// counted), 1-based for JSON.
	Number int
	Fields map[string]interface{}
}

// Decode turns raw file bytes into an ordered sequence of flat records plus
// the ordered list of distinct keys encountered. It returns a *FormatError
// when the input is empty, truncated, or the declared format is unsupported.
func Decode(data []byte, format models.ImportFormat) ([]Record, []string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, formatErrorf("file is empty")
	}

	switch format {
	case models.ImportFormatCSV:
		return decodeCSV(data)
	case models.ImportFormatJSON:
		return decodeJSON(data)
	case models.ImportFormatXLSX:
		return nil, nil, formatErrorf("binary spreadsheet import is not supported; export the sheet as CSV first")
	default:
		return nil, nil, formatErrorf("unsupported import format: %s", format)
	}
}

func decodeCSV(data []byte) ([]Record, []string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, formatErrorf("failed to read CSV header: %v", err)
	}

	keys := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		header[i] = strings.TrimSuffix(header[i], " *")
		if header[i] != "" && !seen[header[i]] {
			seen[header[i]] = true
			keys = append(keys, header[i])
		}
	}

	var records []Record
	rowNum := 1 // header is row 1; blank lines are skipped by the reader
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, formatErrorf("error reading CSV row %d: %v", rowNum+1, err)
		}

		// The csv reader only skips truly empty lines; a whitespace-only
		// line still parses as a record. Treat it as blank too, without
		// consuming a row number.
		blank := true
		for _, value := range fields {
			if strings.TrimSpace(value) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}

		rowNum++
		row := make(map[string]interface{}, len(header))
		for i, value := range fields {
			if i < len(header) && header[i] != "" {
				row[header[i]] = strings.TrimSpace(value)
			}
		}
		records = append(records, Record{Number: rowNum, Fields: row})
	}

	if len(records) == 0 {
		return nil, nil, formatErrorf("file must have a header row and at least one data row")
	}

	return records, keys, nil
}

func decodeJSON(data []byte) ([]Record, []string, error) {
	var objects []map[string]interface{}
	if err := json.Unmarshal(data, &objects); err != nil {
		// A single top-level object is treated as a one-row array.
		var single map[string]interface{}
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, nil, formatErrorf("failed to parse JSON input: %v", err)
		}
		objects = []map[string]interface{}{single}
	}

	if len(objects) == 0 {
		return nil, nil, formatErrorf("JSON input contains no records")
	}

	keys, err := firstRecordKeys(data)
	if err != nil || len(keys) == 0 {
		// Fall back to the decoded map when token scanning fails.
		keys = keys[:0]
		for key := range objects[0] {
			keys = append(keys, key)
		}
	}

	records := make([]Record, 0, len(objects))
	for i, obj := range objects {
		records = append(records, Record{Number: i + 1, Fields: obj})
	}

	return records, keys, nil
}

// firstRecordKeys scans the JSON tokens of the first object to recover its
// key order, which map decoding discards.
func firstRecordKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(json.Delim); ok && delim == '{' {
			break
		}
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if key, ok := tok.(string); ok {
			keys = append(keys, key)
		}
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
