package services

import (
	"strings"

	"parkinsight/internal/models"
	"parkinsight/internal/transformers"
)

// Dataset source names as used in cache keys, API routes and the CLI.
const (
	SourceCAHCD     = "ca_hcd"
	SourceRivCo     = "rivcoview"
	SourceMHVillage = "mhvillage"
)

// KnownSources lists every dataset source in display order.
func KnownSources() []string {
	return []string{SourceCAHCD, SourceRivCo, SourceMHVillage}
}

// Preferred display columns per source, mirroring the dashboard layout.
var (
	cahcdPreferredColumns = []string{
		"parkName", "address", "city", "zipCode", "parkIdentifier", "phoneNumber",
		"totalNumberLots", "numberMhLots", "numberRvLotsDrains", "statusId",
	}
	cahcdNumericColumns = []string{
		"totalNumberLots", "numberMhLots", "numberRvLotsDrains", "numberRvLotsNoDrains", "statusId",
	}

	rivcoPreferredColumns = []string{
		"apn", "address", "city", "situsCity", "classCode", "taxTotal", "acreage", "lat", "lng",
		"salesCount", "lastSaleDate", "lastSalePrice", "assessedYearLatest", "assessedLatest",
		"assessedPrev", "assessedYoYDelta", "assessedYoYPct",
	}
	rivcoNumericColumns = []string{"lat", "lng", "taxTotal"}

	mhvillagePreferredColumns = []string{
		"Community Name", "Street Address", "City", "State", "County", "Zip Code",
		"Total Sites", "Vacant Sites", "Homes For Sale", "Homes For Rent",
		"Avg Monthly Rent", "Phone Number", "Age Restrictions Description",
		"Favorite Count", "Website", "Caption", "Description",
		"amenity_Golf Course", "amenity_Swimming Pool", "amenity_Clubhouse",
		"amenity_Fitness Center", "amenity_Pickleball", "amenity_Gated",
		"amenity_Waterfront", "amenity_Shuffleboard Court",
	}
	mhvillageNumericColumns = []string{
		"Total Sites", "Vacant Sites", "Homes For Sale", "Homes For Rent",
		"Latitude", "Longitude", "Avg Monthly Rent", "Favorite Count",
	}
)

// The community table carries amenity columns on top of the usual set, so it
// gets a wider column cap than the default.
const mhvillageMaxColumns = 25

// displayColumnMap renames the dot-path columns of expanded park detail
// records to readable headings.
var displayColumnMap = map[string]string{
	"payload.name":                                              "Community Name",
	"payload.relationships.address.streetAddress1":              "Street Address",
	"payload.relationships.address.city":                        "City",
	"payload.relationships.address.state":                       "State",
	"payload.relationships.address.postalCode":                  "Zip Code",
	"payload.relationships.address.coordinatePoint.latitude":    "Latitude",
	"payload.relationships.address.coordinatePoint.longitude":   "Longitude",
	"payload.relationships.address.county":                      "County",
	"payload.relationships.siteCount.total":                     "Total Sites",
	"payload.relationships.siteCount.vacant":                    "Vacant Sites",
	"payload.relationships.homesCount.forSaleCount":             "Homes For Sale",
	"payload.relationships.homesCount.forRentCount":             "Homes For Rent",
	"payload.relationships.phone.number":                        "Phone Number",
	"payload.relationships.favoriteCount.total":                 "Favorite Count",
	"payload.averageMonthlyRent":                                "Avg Monthly Rent",
	"payload.ageRestrictions":                                   "Age Restrictions",
	"payload.ageRestrictionsDescription":                        "Age Restrictions Description",
	"payload.petsAllowed":                                       "Pets Allowed",
	"payload.isResidentOwned":                                   "Resident Owned",
	"payload.yearBuilt":                                         "Year Built",
	"payload.caption":                                           "Caption",
	"payload.description":                                       "Description",
	"payload.website":                                           "Website",
	"payload.virtualTour":                                       "Virtual Tour",
}

var displayNames = func() map[string]bool {
	out := make(map[string]bool, len(displayColumnMap))
	for _, v := range displayColumnMap {
		out[v] = true
	}
	return out
}()

// renameDisplayColumns maps every key of an expanded record to its display
// heading. Unmapped keys lose their payload prefixes and get title-cased
// word by word; keys that already match a display heading stay put.
func renameDisplayColumns(rec models.Value) models.Value {
	if rec.Kind() != models.KindObject {
		return rec
	}
	out := models.Object()
	for _, f := range rec.Fields() {
		out.Set(displayColumnName(f.Key), f.Value)
	}
	return out
}

func displayColumnName(key string) string {
	if mapped, ok := displayColumnMap[key]; ok {
		return mapped
	}
	if displayNames[key] {
		return key
	}
	clean := transformers.StripPathPrefix(key, "payload.relationships.", "payload.")
	clean = strings.ReplaceAll(clean, ".", " ")
	clean = strings.ReplaceAll(clean, "_", " ")
	words := strings.Fields(clean)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
