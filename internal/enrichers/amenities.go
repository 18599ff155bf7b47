package enrichers

import (
	"regexp"
	"strings"

	"parkinsight/internal/models"
)

var amenityCategories = map[string]bool{
	"amenity":        true,
	"infrastructure": true,
	"location":       true,
}

var readableBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// ExtractAmenities flattens a park record's typed detail entries into
// presence/value columns named "amenity_<Readable Name>". Entries qualify
// when their category is amenity, infrastructure or location and their type
// is non-empty. Boolean values render as "Yes"/"No"; null values and strings
// that are empty after trimming are skipped; everything else passes through.
// Malformed detail shapes yield an empty result, never an error.
func ExtractAmenities(rec models.Value) []models.Field {
	details := findDetails(rec)
	if details.Kind() != models.KindArray {
		return nil
	}

	out := models.Object()
	for _, detail := range details.Items() {
		if detail.Kind() != models.KindObject {
			continue
		}
		category, _ := detailString(detail, "category")
		if !amenityCategories[category] {
			continue
		}
		detailType, _ := detail.Get("type")
		typeName := detailType.Text()
		if typeName == "" {
			continue
		}
		value, ok := detail.Get("value")
		if !ok || value.IsNull() {
			continue
		}
		if value.Kind() == models.KindBool {
			if value.AsBool() {
				value = models.String("Yes")
			} else {
				value = models.String("No")
			}
		}
		if s, isStr := value.AsString(); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		out.Set("amenity_"+readableName(typeName), value)
	}
	return out.Fields()
}

// findDetails locates the detail array in either the raw nested shape, the
// dot-path expanded column, or a normalized top-level key.
func findDetails(rec models.Value) models.Value {
	if v, ok := rec.GetPath("payload", "relationships", "details"); ok {
		return v
	}
	if v, ok := rec.Get("payload.relationships.details"); ok {
		return v
	}
	if v, ok := rec.GetFirst("details", "Details"); ok {
		return v
	}
	return models.Null()
}

func detailString(rec models.Value, key string) (string, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// readableName turns a raw detail type like "golfCourse" or "fitness_center"
// into a title-cased display name ("Golf Course", "Fitness Center").
func readableName(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	name = readableBoundary.ReplaceAllString(name, "$1 $2")
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
