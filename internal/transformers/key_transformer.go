package transformers

import (
	"regexp"
	"strings"

	"parkinsight/internal/models"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nonAlnumRun   = regexp.MustCompile(`[^0-9A-Za-z]+`)
)

// ToCamelKey normalizes an arbitrary field name to lowerCamelCase with no
// separators. The Salesforce "__c" custom-field suffix is stripped, camel
// humps are split (SalePrice -> Sale Price), runs of non-alphanumeric
// characters collapse to a single boundary, and the tokens are rejoined with
// the first lowercased and the rest title-cased. A name with no alphanumeric
// content normalizes to the empty string. The output is a fixed point:
// ToCamelKey(ToCamelKey(s)) == ToCamelKey(s).
func ToCamelKey(key string) string {
	s := strings.TrimSpace(key)
	s = strings.TrimSuffix(s, "__c")

	s = camelBoundary.ReplaceAllString(s, "$1 $2")
	s = nonAlnumRun.ReplaceAllString(s, " ")

	parts := strings.Fields(s)
	if len(parts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(parts[0]))
	for _, p := range parts[1:] {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(strings.ToLower(p[1:]))
	}
	return b.String()
}

// NormalizeTree recursively rewrites every object key in the tree through
// ToCamelKey. Arrays are processed element-wise; scalars pass through
// unchanged. When two raw keys normalize to the same canonical key the later
// value wins but the first-seen position is kept.
func NormalizeTree(v models.Value) models.Value {
	switch v.Kind() {
	case models.KindObject:
		out := models.Object()
		for _, f := range v.Fields() {
			out.Set(ToCamelKey(f.Key), NormalizeTree(f.Value))
		}
		return out
	case models.KindArray:
		out := models.Array()
		for _, it := range v.Items() {
			out.Append(NormalizeTree(it))
		}
		return out
	}
	return v
}
