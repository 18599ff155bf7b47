package services

import (
	"testing"

	"parkinsight/internal/models"
)

func TestDisplayColumnName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"payload.name", "Community Name"},
		{"payload.relationships.address.city", "City"},
		{"payload.relationships.siteCount.total", "Total Sites"},
		{"City", "City"},
		{"payload.relationships.photos", "Photos"},
		{"payload.somethingNew", "Somethingnew"},
		{"amenity_Golf Course", "Amenity Golf Course"},
	}
	for _, tc := range cases {
		if got := displayColumnName(tc.in); got != tc.want {
			t.Errorf("displayColumnName(%q): want %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestRenameDisplayColumns(t *testing.T) {
	rec := models.Object(
		models.Field{Key: "payload.name", Value: models.String("Sunset")},
		models.Field{Key: "payload.relationships.address.city", Value: models.String("Perris")},
	)
	out := renameDisplayColumns(rec)

	if v, ok := out.Get("Community Name"); !ok || v.Text() != "Sunset" {
		t.Fatalf("community name not renamed: %v", out)
	}
	if v, ok := out.Get("City"); !ok || v.Text() != "Perris" {
		t.Fatalf("city not renamed: %v", out)
	}
	if _, ok := out.Get("payload.name"); ok {
		t.Fatal("raw dot-path key must not survive renaming")
	}
}

func TestKnownSources(t *testing.T) {
	got := KnownSources()
	want := []string{"ca_hcd", "rivcoview", "mhvillage"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}
