package organization

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

func strPtr(s string) *string { return &s }

func clinicalOrg() *Organization {
	return &Organization{
		ID:   uuid.New(),
		Kind: KindClinical,
		Names: []Name{
			{Value: "Foo", IsPrimary: true},
			{Value: "Bar", IsPrimary: false},
		},
		Clinical: &ClinicalDetail{NPI: 1234567893},
	}
}

func TestToFHIRPrimaryNameAndAlias(t *testing.T) {
	resource := clinicalOrg().ToFHIR()

	if resource["name"] != "Foo" {
		t.Fatalf("name = %v, want Foo", resource["name"])
	}
	aliases, ok := resource["alias"].([]string)
	if !ok || len(aliases) != 1 || aliases[0] != "Bar" {
		t.Fatalf("alias = %v, want [Bar]", resource["alias"])
	}
}

func TestToFHIRNoPrimaryFallsBackToFirstName(t *testing.T) {
	o := clinicalOrg()
	o.Names = []Name{
		{Value: "Alpha", IsPrimary: false},
		{Value: "Beta", IsPrimary: false},
	}
	resource := o.ToFHIR()

	if resource["name"] != "Alpha" {
		t.Fatalf("name = %v, want Alpha", resource["name"])
	}
	aliases, _ := resource["alias"].([]string)
	if len(aliases) != 1 || aliases[0] != "Beta" {
		t.Fatalf("alias = %v, want [Beta]", aliases)
	}
}

func TestToFHIRPartOfOnlyWhenParentExists(t *testing.T) {
	o := clinicalOrg()
	if _, ok := o.ToFHIR()["partOf"]; ok {
		t.Fatal("partOf present without a parent")
	}

	parent := uuid.New()
	o.ParentID = &parent
	ref, ok := o.ToFHIR()["partOf"].(fhir.Reference)
	if !ok {
		t.Fatal("partOf missing with a parent set")
	}
	if ref.Reference != "Organization/"+parent.String() {
		t.Fatalf("partOf = %q", ref.Reference)
	}
}

func TestToFHIRNPIIdentifier(t *testing.T) {
	enumerated := time.Date(2012, 6, 1, 0, 0, 0, 0, time.UTC)
	o := clinicalOrg()
	o.Clinical.EnumerationDate = &enumerated

	ids, ok := o.ToFHIR()["identifier"].([]fhir.Identifier)
	if !ok || len(ids) == 0 {
		t.Fatalf("identifier = %v", o.ToFHIR()["identifier"])
	}
	npi := ids[0]
	if npi.Use != "official" || npi.System != fhir.SystemNPI || npi.Value != "1234567893" {
		t.Fatalf("npi identifier = %+v", npi)
	}
	if npi.Type.Coding[0].Code != "PRN" {
		t.Fatalf("npi type = %+v", npi.Type)
	}
	if npi.Period == nil || *npi.Period.Start != "2012-06-01" {
		t.Fatalf("npi period = %+v", npi.Period)
	}
}

func TestToFHIREINBecomesIdentifier(t *testing.T) {
	ein := uuid.New()
	o := clinicalOrg()
	o.EINID = &ein

	ids := o.ToFHIR()["identifier"].([]fhir.Identifier)
	last := ids[len(ids)-1]
	if last.Value != ein.String() || last.Type.Coding[0].Code != "EN" {
		t.Fatalf("ein identifier = %+v", last)
	}
}

func TestToFHIRFHIRIDUsesNPIWhenEnumerated(t *testing.T) {
	o := clinicalOrg()
	if o.FHIRID() != "1234567893" {
		t.Fatalf("FHIRID = %q", o.FHIRID())
	}

	o.Clinical = nil
	if o.FHIRID() != o.ID.String() {
		t.Fatalf("FHIRID = %q, want row uuid", o.FHIRID())
	}
}

func TestToFHIROtherIDsWithoutNPI(t *testing.T) {
	o := clinicalOrg()
	o.Clinical = &ClinicalDetail{
		OtherIDs: []OtherID{{TypeCode: "5", TypeDisplay: "MEDICAID", Value: "A12345"}},
	}

	if o.FHIRID() != o.ID.String() {
		t.Fatalf("FHIRID = %q, want row uuid when not enumerated", o.FHIRID())
	}

	resource := o.ToFHIR()
	if resource["id"] != o.ID.String() {
		t.Fatalf("id = %v, want row uuid", resource["id"])
	}
	ids := resource["identifier"].([]fhir.Identifier)
	if len(ids) != 1 {
		t.Fatalf("identifiers = %+v, want only the other id", ids)
	}
	if ids[0].System == fhir.SystemNPI || ids[0].Value != "A12345" {
		t.Fatalf("identifier = %+v", ids[0])
	}
}

func TestToFHIRContactOmittedWithoutOfficial(t *testing.T) {
	o := clinicalOrg()
	if _, ok := o.ToFHIR()["contact"]; ok {
		t.Fatal("contact present without authorized official")
	}
}

func TestToFHIRContactAddressFromOrganization(t *testing.T) {
	o := clinicalOrg()
	o.Official = &Official{
		Names: []PersonName{
			{Use: "official", First: strPtr("Jane"), Last: strPtr("Doe")},
			{Use: "old", First: strPtr("Janet"), Last: strPtr("Doe")},
		},
		Phones: []Phone{{Number: "555-0100", Use: "work", Extension: strPtr("9")}},
		Emails: []string{"jane@example.org"},
	}
	o.Addresses = []Address{
		{Use: "work", Line1: "100 Main St", City: "St. Louis", State: "MO", Zip: "63101"},
	}

	contacts := o.ToFHIR()["contact"].([]fhir.Contact)
	if len(contacts) != 1 {
		t.Fatalf("contacts = %v", contacts)
	}
	contact := contacts[0]
	if contact.Name == nil || contact.Name.Text != "Jane Doe" {
		t.Fatalf("contact name = %+v, want first name entry only", contact.Name)
	}
	if len(contact.Telecom) != 2 {
		t.Fatalf("telecom = %+v", contact.Telecom)
	}
	if contact.Telecom[0].Value != "555-0100 ext. 9" {
		t.Fatalf("phone = %+v", contact.Telecom[0])
	}
	if contact.Address == nil || contact.Address.City != "St. Louis" {
		t.Fatalf("address = %+v", contact.Address)
	}
}

func TestToFHIRContactAddressOmittedWhenOrgHasNone(t *testing.T) {
	o := clinicalOrg()
	o.Official = &Official{Names: []PersonName{{Use: "official", Last: strPtr("Doe")}}}

	contacts := o.ToFHIR()["contact"].([]fhir.Contact)
	if contacts[0].Address != nil {
		t.Fatalf("address = %+v, want omitted", contacts[0].Address)
	}
}

func TestToFHIRQualificationsFromTaxonomies(t *testing.T) {
	o := clinicalOrg()
	o.Clinical.Taxonomies = []Taxonomy{{Code: "261Q00000X", DisplayName: "Clinic/Center"}}

	quals, ok := o.ToFHIR()["qualification"].([]fhir.Qualification)
	if !ok || len(quals) != 1 {
		t.Fatalf("qualification = %v", o.ToFHIR()["qualification"])
	}
	coding := quals[0].Code.Coding[0]
	if coding.System != fhir.SystemNUCCTaxonomy || coding.Code != "261Q00000X" {
		t.Fatalf("coding = %+v", coding)
	}
}

func TestToFHIRVendorShortCircuits(t *testing.T) {
	o := &Organization{ID: uuid.New(), Kind: KindVendor, VendorName: "Epic"}
	resource := o.ToFHIR()

	if resource["name"] != "Epic" {
		t.Fatalf("name = %v", resource["name"])
	}
	ids, ok := resource["identifier"].([]fhir.Identifier)
	if !ok || len(ids) != 0 {
		t.Fatalf("identifier = %v, want empty array", resource["identifier"])
	}
	if _, ok := resource["meta"]; ok {
		t.Fatal("vendor rendering must not carry clinical meta")
	}
	if _, ok := resource["qualification"]; ok {
		t.Fatal("vendor rendering must not carry qualifications")
	}
}
