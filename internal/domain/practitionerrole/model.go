// Package practitionerrole serves FHIR PractitionerRole resources over the
// provider-to-location link table.
package practitionerrole

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// Role is the assembled entity graph for one provider-to-location row. The
// referenced practitioner, organization and location are carried as display
// snapshots so assembly needs no further lookups.
type Role struct {
	ID               uuid.UUID
	Active           bool
	RoleCode         string
	SpecialtyCode    string
	SpecialtyDisplay string

	PractitionerID  uuid.UUID
	PractitionerNPI int64
	// PractitionerName is the practitioner's display name, assembled from
	// their earliest name row.
	PractitionerName string

	OrganizationID   uuid.UUID
	OrganizationName string

	LocationID   uuid.UUID
	LocationName string

	Latitude  *float64
	Longitude *float64
}

// PractitionerFHIRID mirrors the Practitioner detail-route id: the NPI when
// enumerated, otherwise the individual UUID.
func (r *Role) PractitionerFHIRID() string {
	if r.PractitionerNPI != 0 {
		return fmt.Sprintf("%d", r.PractitionerNPI)
	}
	return r.PractitionerID.String()
}

// HasCoordinates reports whether the role's location is geocoded.
func (r *Role) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// ToFHIR assembles the FHIR PractitionerRole resource. References are
// absolute so clients can follow them without knowing the serving base.
func (r *Role) ToFHIR(baseURL string) map[string]interface{} {
	practitioner := fhir.AbsoluteReference(baseURL, "Practitioner", r.PractitionerFHIRID())
	practitioner.Display = r.PractitionerName
	organization := fhir.AbsoluteReference(baseURL, "Organization", r.OrganizationID.String())
	organization.Display = r.OrganizationName
	location := fhir.AbsoluteReference(baseURL, "Location", r.LocationID.String())
	location.Display = r.LocationName

	result := map[string]interface{}{
		"resourceType": "PractitionerRole",
		"id":           r.ID.String(),
		"active":       r.Active,
		"practitioner": practitioner,
		"organization": organization,
		"location":     []fhir.Reference{location},
	}

	if r.RoleCode != "" {
		result["code"] = []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{Code: r.RoleCode}},
		}}
	}
	if r.SpecialtyCode != "" {
		result["specialty"] = []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{
				System:  fhir.SystemNUCCTaxonomy,
				Code:    r.SpecialtyCode,
				Display: r.SpecialtyDisplay,
			}},
		}}
	}

	return result
}
