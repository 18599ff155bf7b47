package transformers

import (
	"strings"

	"parkinsight/internal/models"
)

// FlattenRecords converts a fetched payload into a flat sequence of record
// objects ready for tabular conversion. Accepted shapes:
//
//   - array of objects: each object becomes a record
//   - array containing arrays: object elements of the inner array are
//     appended (one level only, not recursive)
//   - array containing JSON-encoded strings: decoded objects are appended;
//     decoded arrays contribute their object elements
//   - a single object: promoted to a one-record sequence
//
// Anything else, including unparseable strings and scalar elements, is
// silently dropped. A nil-ish payload yields an empty sequence. The function
// never fails on malformed input.
func FlattenRecords(payload models.Value) []models.Value {
	var out []models.Value
	switch payload.Kind() {
	case models.KindArray:
		for _, item := range payload.Items() {
			switch item.Kind() {
			case models.KindObject:
				out = append(out, item)
			case models.KindArray:
				for _, sub := range item.Items() {
					if sub.Kind() == models.KindObject {
						out = append(out, sub)
					}
				}
			case models.KindString:
				s, _ := item.AsString()
				parsed, err := models.DecodeJSON([]byte(s))
				if err != nil {
					continue
				}
				switch parsed.Kind() {
				case models.KindObject:
					out = append(out, parsed)
				case models.KindArray:
					for _, sub := range parsed.Items() {
						if sub.Kind() == models.KindObject {
							out = append(out, sub)
						}
					}
				}
			}
		}
	case models.KindObject:
		out = append(out, payload)
	}
	return out
}

// ExpandRecord flattens nested objects into dot-path keys, the tabular
// convention the dashboard expects for deeply nested park detail payloads
// (payload.relationships.address.city and friends). Arrays are kept as-is
// under their path; the sanitizer decides how to render them.
func ExpandRecord(rec models.Value) models.Value {
	if rec.Kind() != models.KindObject {
		return rec
	}
	out := models.Object()
	expandInto(&out, "", rec)
	return out
}

func expandInto(out *models.Value, prefix string, v models.Value) {
	for _, f := range v.Fields() {
		key := f.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Value.Kind() == models.KindObject {
			expandInto(out, key, f.Value)
			continue
		}
		out.Set(key, f.Value)
	}
}

// ExpandRecords applies ExpandRecord to every record in the sequence.
func ExpandRecords(records []models.Value) []models.Value {
	out := make([]models.Value, len(records))
	for i, rec := range records {
		out[i] = ExpandRecord(rec)
	}
	return out
}

// StripPathPrefix removes leading path segments such as "payload." or
// "payload.relationships." from a dot-path column name.
func StripPathPrefix(col string, prefixes ...string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(col, p) {
			return col[len(p):]
		}
	}
	return col
}
