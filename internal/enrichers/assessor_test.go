package enrichers

import (
	"testing"

	"parkinsight/internal/models"
)

func mustDecode(t *testing.T, s string) models.Value {
	t.Helper()
	v, err := models.DecodeJSON([]byte(s))
	if err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return v
}

func fieldMap(fields []models.Field) map[string]models.Value {
	out := make(map[string]models.Value, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func TestSummarizeAssessorSales(t *testing.T) {
	rec := mustDecode(t, `{
		"apn": "123",
		"sales": [
			{"saledate": "2019-05-01", "SalePrice": "$100,000", "Qualified": "Q"},
			{"saledate": "2021-03-15", "SalePrice": "$250,000", "Qualified": "U"},
			{"saledate": "2020-01-01", "SalePrice": "$175,000", "Qualified": "Q"}
		]
	}`)
	got := fieldMap(SummarizeAssessor(rec))

	if f, _ := got["salesCount"].AsFloat(); f != 3 {
		t.Fatalf("salesCount: want 3, got %v", got["salesCount"])
	}
	if s, _ := got["lastSaleDate"].AsString(); s != "2021-03-15" {
		t.Fatalf("lastSaleDate: want 2021-03-15, got %v", got["lastSaleDate"])
	}
	if f, _ := got["lastSalePrice"].AsFloat(); f != 250000 {
		t.Fatalf("lastSalePrice: want 250000, got %v", got["lastSalePrice"])
	}
	if s, _ := got["lastSaleQualified"].AsString(); s != "U" {
		t.Fatalf("lastSaleQualified: want U, got %v", got["lastSaleQualified"])
	}
}

func TestSummarizeAssessorSalesTieBreak(t *testing.T) {
	rec := mustDecode(t, `{
		"sales": [
			{"saledate": "2021-03-15", "SalePrice": 1},
			{"saledate": "2021-03-15", "SalePrice": 2}
		]
	}`)
	got := fieldMap(SummarizeAssessor(rec))
	if f, _ := got["lastSalePrice"].AsFloat(); f != 1 {
		t.Fatalf("first entry must win on equal dates, got %v", got["lastSalePrice"])
	}
}

func TestSummarizeAssessorEmptySales(t *testing.T) {
	got := fieldMap(SummarizeAssessor(mustDecode(t, `{"sales": []}`)))
	if f, _ := got["salesCount"].AsFloat(); f != 0 {
		t.Fatalf("salesCount: want 0, got %v", got["salesCount"])
	}
	if _, ok := got["lastSaleDate"]; ok {
		t.Fatal("no lastSaleDate expected for empty sales")
	}
}

func TestSummarizeAssessorHistory(t *testing.T) {
	rec := mustDecode(t, `{
		"history": [
			{"TaxYear": "2024", "AssessedTot": "$220,000"},
			{"TaxYear": "2022", "AssessedTot": "$180,000"},
			{"TaxYear": "2023", "AssessedTot": "$200,000"}
		]
	}`)
	got := fieldMap(SummarizeAssessor(rec))

	if s, _ := got["assessedYearLatest"].AsString(); s != "2024" {
		t.Fatalf("assessedYearLatest: want 2024, got %v", got["assessedYearLatest"])
	}
	if f, _ := got["assessedLatest"].AsFloat(); f != 220000 {
		t.Fatalf("assessedLatest: want 220000, got %v", got["assessedLatest"])
	}
	if f, _ := got["assessedPrev"].AsFloat(); f != 200000 {
		t.Fatalf("assessedPrev: want 200000, got %v", got["assessedPrev"])
	}
	if f, _ := got["assessedYoYDelta"].AsFloat(); f != 20000 {
		t.Fatalf("assessedYoYDelta: want 20000, got %v", got["assessedYoYDelta"])
	}
	if f, _ := got["assessedYoYPct"].AsFloat(); f != 10 {
		t.Fatalf("assessedYoYPct: want 10, got %v", got["assessedYoYPct"])
	}
}

func TestSummarizeAssessorHistorySingleEntry(t *testing.T) {
	rec := mustDecode(t, `{"history": [{"TaxYear": 2024, "AssessedTot": 90000}]}`)
	got := fieldMap(SummarizeAssessor(rec))

	if f, _ := got["assessedLatest"].AsFloat(); f != 90000 {
		t.Fatalf("assessedLatest: want 90000, got %v", got["assessedLatest"])
	}
	if !got["assessedPrev"].IsNull() {
		t.Fatal("assessedPrev must be null with one history entry")
	}
	if _, ok := got["assessedYoYDelta"]; ok {
		t.Fatal("no YoY delta without a previous year")
	}
}

func TestSummarizeAssessorUnparseableYearSortsFirst(t *testing.T) {
	rec := mustDecode(t, `{
		"history": [
			{"TaxYear": "bad", "AssessedTot": 1},
			{"TaxYear": "2020", "AssessedTot": 2}
		]
	}`)
	got := fieldMap(SummarizeAssessor(rec))
	if f, _ := got["assessedLatest"].AsFloat(); f != 2 {
		t.Fatalf("unparseable year must sort as 0: got %v", got["assessedLatest"])
	}
}

func TestSummarizeAssessorMalformedShapes(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"sales": "oops", "history": 42}`,
		`{"sales": [1, "two"], "history": [null]}`,
	} {
		got := fieldMap(SummarizeAssessor(mustDecode(t, raw)))
		if f, _ := got["salesCount"].AsFloat(); f != 0 {
			t.Fatalf("%s: salesCount must be 0, got %v", raw, got["salesCount"])
		}
	}
}

func TestEnrichRecordIdempotent(t *testing.T) {
	rec := mustDecode(t, `{"apn":"1","sales":[{"saledate":"2020-01-01","SalePrice":5}]}`)

	once := EnrichRecord(rec, SummarizeAssessor(rec))
	twice := EnrichRecord(once, SummarizeAssessor(once))

	a, _ := once.MarshalJSON()
	b, _ := twice.MarshalJSON()
	if string(a) != string(b) {
		t.Fatalf("enrichment not idempotent:\n%s\n%s", a, b)
	}
	if _, ok := rec.Get("salesCount"); ok {
		t.Fatal("EnrichRecord must not mutate its input")
	}
}
