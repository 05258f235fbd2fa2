package location

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

func buildSearchSQL(f Filters, sorts []fhir.SortSpec) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("l.id").From("location l")
	f.apply(sb)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	return sb.Build()
}

func TestNameFilterIsExactMatch(t *testing.T) {
	sql, args := buildSearchSQL(Filters{Name: "Gateway Family Clinic"}, nil)

	if !strings.Contains(sql, "l.name = ") {
		t.Fatalf("name filter should be exact: %s", sql)
	}
	if strings.Contains(sql, "plainto_tsquery('simple', l.name") {
		t.Fatalf("name filter must not use full-text search: %s", sql)
	}
	if len(args) != 1 || args[0] != "Gateway Family Clinic" {
		t.Fatalf("args = %v", args)
	}
}

func TestOrganizationTypeSearchesOwningOrgTaxonomy(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{OrganizationType: "General Acute Care Hospital"}, nil)

	if !strings.Contains(sql, "organization_to_taxonomy") || !strings.Contains(sql, "l.organization_id") {
		t.Fatalf("organization_type should traverse to the owning organization: %s", sql)
	}
}

func TestAddressUseMatchesInheritedUse(t *testing.T) {
	sql, args := buildSearchSQL(Filters{AddressUse: "billing"}, nil)

	if !strings.Contains(sql, "a.address_id = l.address_id") {
		t.Fatalf("address-use must match the inherited organization address: %s", sql)
	}
	if len(args) != 1 || args[0] != 5 {
		t.Fatalf("args = %v", args)
	}
}

func TestAddressUseUnknownValueCannotMatch(t *testing.T) {
	_, args := buildSearchSQL(Filters{AddressUse: "imaginary"}, nil)

	if len(args) != 1 || args[0] != -1 {
		t.Fatalf("args = %v, want no-match use id -1", args)
	}
}

func TestDefaultOrderIsNameThenID(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{}, nil)

	if !strings.Contains(sql, "ORDER BY lower(l.name) ASC, l.id ASC") {
		t.Fatalf("order by = %s", sql)
	}
}

func TestBoundingBoxExcludesUngeocodedRows(t *testing.T) {
	near, err := fhir.ParseNear("38.629267|-90.194315|3|km")
	if err != nil {
		t.Fatal(err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("l.id").From("location l")
	applyBoundingBox(sb, near)
	sql, args := sb.Build()

	if !strings.Contains(sql, "l.latitude IS NOT NULL") || !strings.Contains(sql, "l.longitude IS NOT NULL") {
		t.Fatalf("bounding box must exclude rows without coordinates: %s", sql)
	}
	if !strings.Contains(sql, "BETWEEN") {
		t.Fatalf("bounding box should use range predicates: %s", sql)
	}
	if len(args) != 4 {
		t.Fatalf("args = %v", args)
	}
}

func nearTestLocations() []*Location {
	downtown := stLouisClinic()
	suburb := &Location{
		ID:        uuid.MustParse("5a4b3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d"),
		Name:      "West County Clinic",
		Latitude:  floatPtr(38.6270),
		Longitude: floatPtr(-90.1994),
	}
	ungeocoded := &Location{
		ID:   uuid.MustParse("7c6d5e4f-3a2b-4c1d-9e8f-0a1b2c3d4e5f"),
		Name: "No Coordinates Clinic",
	}
	farAway := &Location{
		ID:        uuid.MustParse("9e8f7a6b-5c4d-4e3f-8a2b-1c0d9e8f7a6b"),
		Name:      "Chicago Clinic",
		Latitude:  floatPtr(41.8781),
		Longitude: floatPtr(-87.6298),
	}
	return []*Location{downtown, suburb, ungeocoded, farAway}
}

func TestPageNearMatchesKeepsPointsWithinRadius(t *testing.T) {
	near, err := fhir.ParseNear("38.629267|-90.194315|3|km")
	if err != nil {
		t.Fatal(err)
	}

	matches, total := pageNearMatches(nearTestLocations(), near, pagination.Params{Page: 1, PageSize: 10})

	if total != 2 {
		t.Fatalf("total = %d", total)
	}
	for _, l := range matches {
		if !l.HasCoordinates() {
			t.Fatalf("ungeocoded location %s must be excluded", l.Name)
		}
	}
}

func TestPageNearMatchesTinyRadiusFromFarPointIsEmpty(t *testing.T) {
	// A 1-meter radius centered ~30km away matches nothing.
	near, err := fhir.ParseNear("38.9|-90.5|0.001|km")
	if err != nil {
		t.Fatal(err)
	}

	matches, total := pageNearMatches(nearTestLocations(), near, pagination.Params{Page: 1, PageSize: 10})
	if total != 0 || len(matches) != 0 {
		t.Fatalf("matches = %d, total = %d", len(matches), total)
	}
}

func TestPageNearMatchesPagesInProcess(t *testing.T) {
	near, err := fhir.ParseNear("38.629267|-90.194315|500|km")
	if err != nil {
		t.Fatal(err)
	}

	matches, total := pageNearMatches(nearTestLocations(), near, pagination.Params{Page: 2, PageSize: 2})

	if total != 3 {
		t.Fatalf("total = %d, want all geocoded candidates within 500km", total)
	}
	if len(matches) != 1 {
		t.Fatalf("page 2 size = %d", len(matches))
	}
}

func TestPageNearMatchesOffsetPastEnd(t *testing.T) {
	near, err := fhir.ParseNear("38.629267|-90.194315|3|km")
	if err != nil {
		t.Fatal(err)
	}

	matches, _ := pageNearMatches(nearTestLocations(), near, pagination.Params{Page: 50, PageSize: 10})
	if len(matches) != 0 {
		t.Fatalf("matches = %d", len(matches))
	}
}
