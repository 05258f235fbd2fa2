package organization

import (
	"strings"
	"testing"

	"github.com/huandu/go-sqlbuilder"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

func buildSearchSQL(f Filters, sorts []fhir.SortSpec) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("o.id").From("organization o")
	f.apply(sb)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	return sb.Build()
}

func TestIdentifierNPISystemScopesToNPITable(t *testing.T) {
	sql, args := buildSearchSQL(Filters{Identifier: "NPI|1234567893"}, nil)

	if !strings.Contains(sql, "clinical_organization") {
		t.Fatalf("query missing NPI predicate: %s", sql)
	}
	if strings.Contains(sql, "organization_to_other_id") {
		t.Fatalf("NPI-scoped search must not touch other ids: %s", sql)
	}
	if len(args) != 1 || args[0] != int64(1234567893) {
		t.Fatalf("args = %v", args)
	}
}

func TestIdentifierNPISystemNonNumericFailsClosed(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{Identifier: "NPI|notanumber"}, nil)

	if !strings.Contains(sql, "1 = 0") {
		t.Fatalf("non-numeric NPI must fail closed: %s", sql)
	}
}

func TestIdentifierEINRequiresUUIDShape(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{Identifier: "EIN|not-a-uuid"}, nil)
	if !strings.Contains(sql, "1 = 0") {
		t.Fatalf("non-UUID EIN must fail closed: %s", sql)
	}

	sql, _ = buildSearchSQL(Filters{Identifier: "EIN|b9c180b2-6e55-4996-a383-8a6e7db6e566"}, nil)
	if !strings.Contains(sql, "ein_id") {
		t.Fatalf("UUID EIN must match ein column: %s", sql)
	}
}

func TestIdentifierUnknownSystemFallsThroughToOtherIDs(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{Identifier: "MEDICAID|ABC123"}, nil)

	if !strings.Contains(sql, "organization_to_other_id") {
		t.Fatalf("unknown system should try other-id lookup: %s", sql)
	}
	if strings.Contains(sql, "clinical_organization") {
		t.Fatalf("unknown system must not leak into NPI match: %s", sql)
	}
}

func TestIdentifierUnscopedUnionsAcrossTypes(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{Identifier: "1234567893"}, nil)

	if !strings.Contains(sql, "organization_to_other_id") || !strings.Contains(sql, "clinical_organization") {
		t.Fatalf("unscoped search must union NPI and other ids: %s", sql)
	}
	if !strings.Contains(sql, " OR ") {
		t.Fatalf("expected OR disjunction: %s", sql)
	}
}

func TestAddressUseUnknownValueCannotMatch(t *testing.T) {
	_, args := buildSearchSQL(Filters{AddressUse: "imaginary"}, nil)

	if len(args) != 1 || args[0] != -1 {
		t.Fatalf("args = %v, want no-match use id -1", args)
	}
}

func TestDefaultOrderIsPrimaryNameThenID(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{}, nil)

	if !strings.Contains(sql, "ORDER BY primary_name ASC, id ASC") {
		t.Fatalf("order by = %s", sql)
	}
}

func TestSortDescendingWhitelisted(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{}, fhir.ParseSort("-name,bogus"))

	if !strings.Contains(sql, "primary_name DESC") {
		t.Fatalf("descending name sort missing: %s", sql)
	}
	if strings.Contains(sql, "bogus") {
		t.Fatalf("unknown sort field leaked into SQL: %s", sql)
	}
}

func TestNameFilterUsesFullTextSearch(t *testing.T) {
	sql, args := buildSearchSQL(Filters{Name: "cumberland clinic"}, nil)

	if !strings.Contains(sql, "plainto_tsquery") {
		t.Fatalf("name filter should use full-text search: %s", sql)
	}
	if len(args) != 1 || args[0] != "cumberland clinic" {
		t.Fatalf("args = %v", args)
	}
}
