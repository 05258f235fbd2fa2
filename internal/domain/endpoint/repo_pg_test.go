package endpoint

import (
	"strings"
	"testing"

	"github.com/huandu/go-sqlbuilder"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

func buildSearchSQL(f Filters, sorts []fhir.SortSpec) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("e.id").From("endpoint_instance e")
	f.apply(sb)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	return sb.Build()
}

func TestNameFilterIsCaseInsensitiveSubstring(t *testing.T) {
	sql, args := buildSearchSQL(Filters{Name: "healthcare"}, nil)

	if !strings.Contains(sql, "ILIKE") {
		t.Fatalf("name filter should be case-insensitive: %s", sql)
	}
	if len(args) != 1 || args[0] != "%healthcare%" {
		t.Fatalf("args = %v", args)
	}
}

func TestPayloadTypeTraversesJoinTable(t *testing.T) {
	sql, args := buildSearchSQL(Filters{PayloadType: "ccda"}, nil)

	if !strings.Contains(sql, "endpoint_instance_to_payload") {
		t.Fatalf("payload filter should traverse join table: %s", sql)
	}
	if len(args) != 1 || args[0] != "%ccda%" {
		t.Fatalf("args = %v", args)
	}
}

func TestOrganizationNameTraversesLocationChain(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{OrganizationName: "ABC Healthcare"}, nil)

	for _, table := range []string{"location_to_endpoint_instance", "organization_to_name"} {
		if !strings.Contains(sql, table) {
			t.Fatalf("organization filter missing %s: %s", table, sql)
		}
	}
}

func TestOrganizationIDNonUUIDFailsClosed(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{OrganizationID: "not-a-uuid"}, nil)

	if !strings.Contains(sql, "1 = 0") {
		t.Fatalf("non-UUID organization_id must fail closed: %s", sql)
	}
}

func TestDefaultOrderIsNameThenID(t *testing.T) {
	sql, _ := buildSearchSQL(Filters{}, nil)

	if !strings.Contains(sql, "ORDER BY lower(e.name) ASC, e.id ASC") {
		t.Fatalf("order by = %s", sql)
	}
}
