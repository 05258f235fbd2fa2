// Package affiliation serves FHIR OrganizationAffiliation resources. An
// affiliation is not stored directly: it is derived from the join chain
// organization -> location -> endpoint instance -> EHR vendor, one row per
// distinct organization/vendor pairing.
package affiliation

import (
	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// Affiliation pairs a clinical organization with the EHR vendor reachable
// through at least one of its locations' endpoints.
type Affiliation struct {
	OrganizationID   uuid.UUID
	OrganizationName string
	VendorID         uuid.UUID
	VendorName       string
}

// ToFHIR assembles the FHIR OrganizationAffiliation resource. The resource
// id is the participating organization's UUID, matching the detail route.
// The vendor appears as the owning organization reference; vendors are
// served as minimal Organization resources.
func (a *Affiliation) ToFHIR(baseURL string) map[string]interface{} {
	participating := fhir.AbsoluteReference(baseURL, "Organization", a.OrganizationID.String())
	participating.Display = a.OrganizationName
	vendor := fhir.AbsoluteReference(baseURL, "Organization", a.VendorID.String())
	vendor.Display = a.VendorName

	return map[string]interface{}{
		"resourceType":              "OrganizationAffiliation",
		"id":                        a.OrganizationID.String(),
		"active":                    true,
		"organization":              vendor,
		"participatingOrganization": participating,
	}
}
