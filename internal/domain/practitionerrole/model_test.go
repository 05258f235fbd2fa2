package practitionerrole

import (
	"testing"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

func activeRole() *Role {
	return &Role{
		ID:               uuid.MustParse("12300000-0000-0000-0000-000000000124"),
		Active:           true,
		RoleCode:         "MD",
		SpecialtyCode:    "207Q00000X",
		SpecialtyDisplay: "Family Medicine",
		PractitionerID:   uuid.MustParse("6f1f73d2-9e1a-4f3c-8d6b-0a51f19a3f21"),
		PractitionerNPI:  1234567893,
		PractitionerName: "Jane Rivera",
		OrganizationID:   uuid.MustParse("b9c180b2-6e55-4996-a383-8a6e7db6e566"),
		OrganizationName: "Gateway Health System",
		LocationID:       uuid.MustParse("3f8e6f6a-1d2b-4c3d-9e8f-7a6b5c4d3e2f"),
		LocationName:     "Gateway Family Clinic",
	}
}

func TestToFHIRReferencesAreAbsolute(t *testing.T) {
	resource := activeRole().ToFHIR("http://localhost:8080")

	practitioner := resource["practitioner"].(fhir.Reference)
	if practitioner.Reference != "http://localhost:8080/fhir/Practitioner/1234567893" {
		t.Fatalf("practitioner = %q", practitioner.Reference)
	}
	if practitioner.Display != "Jane Rivera" {
		t.Fatalf("practitioner display = %q", practitioner.Display)
	}

	organization := resource["organization"].(fhir.Reference)
	if organization.Reference != "http://localhost:8080/fhir/Organization/b9c180b2-6e55-4996-a383-8a6e7db6e566" {
		t.Fatalf("organization = %q", organization.Reference)
	}

	locations := resource["location"].([]fhir.Reference)
	if len(locations) != 1 || locations[0].Display != "Gateway Family Clinic" {
		t.Fatalf("location = %+v", locations)
	}
}

func TestToFHIRPractitionerReferenceFallsBackToUUID(t *testing.T) {
	role := activeRole()
	role.PractitionerNPI = 0

	practitioner := role.ToFHIR("http://localhost:8080")["practitioner"].(fhir.Reference)
	want := "http://localhost:8080/fhir/Practitioner/" + role.PractitionerID.String()
	if practitioner.Reference != want {
		t.Fatalf("practitioner = %q, want %q", practitioner.Reference, want)
	}
}

func TestToFHIRRoleAndSpecialtyCodes(t *testing.T) {
	resource := activeRole().ToFHIR("http://localhost:8080")

	codes := resource["code"].([]fhir.CodeableConcept)
	if len(codes) != 1 || codes[0].Coding[0].Code != "MD" {
		t.Fatalf("code = %+v", codes)
	}

	specialties := resource["specialty"].([]fhir.CodeableConcept)
	if len(specialties) != 1 || specialties[0].Coding[0].Code != "207Q00000X" {
		t.Fatalf("specialty = %+v", specialties)
	}
	if specialties[0].Coding[0].System != fhir.SystemNUCCTaxonomy {
		t.Fatalf("specialty system = %q", specialties[0].Coding[0].System)
	}
	if specialties[0].Coding[0].Display != "Family Medicine" {
		t.Fatalf("specialty display = %q", specialties[0].Coding[0].Display)
	}
}

func TestToFHIROmitsEmptyCodes(t *testing.T) {
	role := activeRole()
	role.RoleCode = ""
	role.SpecialtyCode = ""

	resource := role.ToFHIR("http://localhost:8080")
	if _, present := resource["code"]; present {
		t.Fatal("code should be omitted when empty")
	}
	if _, present := resource["specialty"]; present {
		t.Fatal("specialty should be omitted when empty")
	}
}

func TestToFHIRActiveFlag(t *testing.T) {
	role := activeRole()
	role.Active = false

	resource := role.ToFHIR("http://localhost:8080")
	if resource["active"] != false {
		t.Fatalf("active = %v", resource["active"])
	}
}
