// Package enrichers derives per-source summary columns from nested record
// structures. Every enricher is pure, never fails on malformed shapes, and
// only ever adds keys, so re-running one on its own output is harmless.
package enrichers

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"parkinsight/internal/models"
)

// SummarizeAssessor derives sales and assessed-value summary fields from a
// parcel record's nested "sales" and "history" arrays.
//
// Sales: salesCount is always set when a non-empty sales array exists (zero
// otherwise). The last sale is the entry with the maximum parsed sale date;
// when several entries share the maximum date the first one in array order
// wins. Unparseable dates sort as the earliest possible value.
//
// History: entries are stable-sorted ascending by tax year (coerced to int,
// missing or unparseable treated as 0 for sorting only). The latest entry
// yields assessedYearLatest/assessedLatest, the second-to-last assessedPrev,
// and the year-over-year delta and percent are computed only when both
// values parsed and the previous value is non-zero.
func SummarizeAssessor(rec models.Value) []models.Field {
	var out []models.Field
	out = append(out, summarizeSales(rec)...)
	out = append(out, summarizeHistory(rec)...)
	return out
}

func summarizeSales(rec models.Value) []models.Field {
	var out []models.Field
	sales, _ := rec.Get("sales")
	entries := objectItems(sales)
	if len(entries) == 0 {
		out = append(out, models.Field{Key: "salesCount", Value: models.Number(0)})
		return out
	}
	out = append(out, models.Field{Key: "salesCount", Value: models.Number(float64(len(entries)))})

	last := entries[0]
	lastDate := parseSaleDate(last)
	for _, e := range entries[1:] {
		if d := parseSaleDate(e); d.After(lastDate) {
			last = e
			lastDate = d
		}
	}

	saleDate, _ := last.GetFirst("saledate", "saleDate")
	out = append(out, models.Field{Key: "lastSaleDate", Value: saleDate})
	out = append(out, models.Field{Key: "lastSalePrice", Value: moneyValue(firstTruthy(last, "SalePrice", "salePrice"))})
	out = append(out, models.Field{Key: "lastSaleQualified", Value: firstTruthy(last, "Qualified", "qualified")})
	return out
}

func summarizeHistory(rec models.Value) []models.Field {
	hist, _ := rec.Get("history")
	entries := objectItems(hist)
	if len(entries) == 0 {
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return taxYear(entries[i]) < taxYear(entries[j])
	})

	latest := entries[len(entries)-1]
	var prev *models.Value
	if len(entries) > 1 {
		prev = &entries[len(entries)-2]
	}

	latestVal, latestOK := parseMoney(firstTruthy(latest, "AssessedTot", "assessedTot"))
	var prevVal float64
	prevOK := false
	if prev != nil {
		prevVal, prevOK = parseMoney(firstTruthy(*prev, "AssessedTot", "assessedTot"))
	}

	yearRaw := firstTruthy(latest, "TaxYear", "taxYear")
	out := []models.Field{
		{Key: "assessedYearLatest", Value: models.String(yearRaw.Text())},
		{Key: "assessedLatest", Value: optionalNumber(latestVal, latestOK)},
		{Key: "assessedPrev", Value: optionalNumber(prevVal, prevOK)},
	}

	if latestOK && prevOK && prevVal != 0 {
		delta := latestVal - prevVal
		out = append(out,
			models.Field{Key: "assessedYoYDelta", Value: models.Number(delta)},
			models.Field{Key: "assessedYoYPct", Value: models.Number(delta / prevVal * 100.0)},
		)
	}
	return out
}

// EnrichRecord merges derived fields into a copy of the record. Derived keys
// are written with replace semantics so recomputation stays idempotent;
// unrelated fields are untouched.
func EnrichRecord(rec models.Value, extra []models.Field) models.Value {
	if rec.Kind() != models.KindObject {
		return rec
	}
	out := rec.Clone()
	for _, f := range extra {
		out.Set(f.Key, f.Value)
	}
	return out
}

func objectItems(v models.Value) []models.Value {
	if v.Kind() != models.KindArray {
		return nil
	}
	var out []models.Value
	for _, it := range v.Items() {
		if it.Kind() == models.KindObject {
			out = append(out, it)
		}
	}
	return out
}

// firstTruthy returns the first present value that is not null and not an
// empty string, mirroring how the upstream sources alternate key casings.
func firstTruthy(rec models.Value, keys ...string) models.Value {
	for _, k := range keys {
		v, ok := rec.Get(k)
		if !ok || v.IsNull() {
			continue
		}
		if s, isStr := v.AsString(); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return models.Null()
}

var saleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

func parseSaleDate(entry models.Value) time.Time {
	v, _ := entry.GetFirst("saledate", "saleDate")
	s, ok := v.AsString()
	if !ok {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range saleDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func taxYear(entry models.Value) int {
	v := firstTruthy(entry, "TaxYear", "taxYear")
	switch v.Kind() {
	case models.KindNumber:
		f, _ := v.AsFloat()
		return int(f)
	case models.KindString:
		s, _ := v.AsString()
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// parseMoney converts numbers and currency-formatted strings ("$100,000") to
// a float. Anything else reports false.
func parseMoney(v models.Value) (float64, bool) {
	switch v.Kind() {
	case models.KindNumber:
		f, _ := v.AsFloat()
		return f, true
	case models.KindString:
		s, _ := v.AsString()
		s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", ""))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func moneyValue(v models.Value) models.Value {
	f, ok := parseMoney(v)
	if !ok {
		return models.Null()
	}
	return models.Number(f)
}

func optionalNumber(f float64, ok bool) models.Value {
	if !ok {
		return models.Null()
	}
	return models.Number(f)
}
