package importer

import (
	"sort"
	"strings"

	"catalog-import-service/internal/models"
)

// recognizedLocales is the fixed set of translation-column locales, in
// canonical hyphenated form.
var recognizedLocales = []string{
	"en-US", "fr-FR", "es-ES", "de-DE", "it-IT", "pt-PT", "nl-NL",
}

// InferMappings derives one ColumnMapping per source key plus the sorted set
// of distinct translation locales detected. It is pure and deterministic:
// the same key list always yields the same mappings, independent of row
// content. For structured input the first record supplies the native value
// types; for delimited input types come from a keyword heuristic on the key.
func InferMappings(keys []string, format models.ImportFormat, firstRecord map[string]interface{}) (models.ColumnMappings, []string) {
	mappings := make(models.ColumnMappings, 0, len(keys))
	localeSet := make(map[string]bool)
	// At most one mapping may target a given field per locale; the first
	// source key wins when headers normalize onto the same target.
	seenTargets := make(map[string]bool, len(keys))

	for _, key := range keys {
		if base, locale, ok := matchTranslation(key); ok {
			if seenTargets[locale+"\x00"+base] {
				continue
			}
			seenTargets[locale+"\x00"+base] = true
			localeSet[locale] = true
			mappings = append(mappings, models.ColumnMapping{
				SourceKey:     key,
				TargetField:   base,
				Type:          models.ValueTypeText,
				IsTranslation: true,
				Locale:        locale,
			})
			continue
		}

		var target string
		var valueType models.ValueType
		if format == models.ImportFormatJSON {
			target = key
			valueType = nativeType(firstRecord[key])
		} else {
			target = normalizeField(key)
			valueType = inferType(target)
		}

		if seenTargets["\x00"+target] {
			continue
		}
		seenTargets["\x00"+target] = true

		mappings = append(mappings, models.ColumnMapping{
			SourceKey:   key,
			TargetField: target,
			Type:        valueType,
		})
	}

	locales := make([]string, 0, len(localeSet))
	for locale := range localeSet {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	return mappings, locales
}

// matchTranslation reports whether the key ends with an underscore- or
// hyphen-joined locale suffix from the recognized set, case-insensitively.
// On match it returns the normalized base field and the canonical
// hyphenated locale.
func matchTranslation(key string) (string, string, bool) {
	lower := strings.ToLower(key)
	for _, locale := range recognizedLocales {
		parts := strings.SplitN(locale, "-", 2)
		lang, region := strings.ToLower(parts[0]), strings.ToLower(parts[1])
		for _, inner := range []string{"-", "_"} {
			suffix := lang + inner + region
			for _, joiner := range []string{"_", "-"} {
				if strings.HasSuffix(lower, joiner+suffix) {
					base := key[:len(key)-len(suffix)-1]
					if base == "" {
						continue
					}
					return normalizeField(base), locale, true
				}
			}
		}
	}
	return "", "", false
}

// normalizeField lower-cases a key and collapses whitespace to underscores.
func normalizeField(key string) string {
	field := strings.ToLower(strings.TrimSpace(key))
	return strings.Join(strings.Fields(field), "_")
}

// inferType guesses a column's value type from its name.
func inferType(field string) models.ValueType {
	switch {
	case strings.Contains(field, "price"), strings.Contains(field, "calorie"), strings.Contains(field, "cost"):
		return models.ValueTypeNumber
	case strings.Contains(field, "date"), strings.Contains(field, "time"):
		return models.ValueTypeDate
	case strings.Contains(field, "active"), strings.Contains(field, "enabled"), strings.Contains(field, "is_"):
		return models.ValueTypeBoolean
	case strings.Contains(field, "image"), strings.Contains(field, "photo"), strings.Contains(field, "url"):
		return models.ValueTypeImage
	default:
		return models.ValueTypeText
	}
}

// nativeType maps a decoded JSON value onto a column value type.
func nativeType(value interface{}) models.ValueType {
	switch value.(type) {
	case bool:
		return models.ValueTypeBoolean
	case float64, int, int64:
		return models.ValueTypeNumber
	default:
		return models.ValueTypeText
	}
}
