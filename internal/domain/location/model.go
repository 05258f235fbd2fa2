// Package location serves FHIR Location resources over the location table
// and the owning organization's address set.
package location

import (
	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// Location is the assembled entity graph for one location row. The address
// use is not stored on the location itself; it is inherited from the owning
// organization's address row with the same address id.
type Location struct {
	ID             uuid.UUID
	Name           string
	Active         bool
	OrganizationID uuid.UUID
	AddressID      *uuid.UUID

	// AddressUse is resolved against the owning organization's addresses.
	AddressUse string
	Line1      string
	Line2      *string
	City       string
	State      string
	Zip        string

	Latitude  *float64
	Longitude *float64
}

// Status derives the FHIR status code from the active flag.
func (l *Location) Status() string {
	if l.Active {
		return "active"
	}
	return "inactive"
}

// HasCoordinates reports whether the location is geocoded. Rows without
// coordinates are excluded from distance-filtered searches.
func (l *Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// ToFHIR assembles the FHIR Location resource.
func (l *Location) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Location",
		"id":           l.ID.String(),
		"status":       l.Status(),
		"name":         l.Name,
		"managingOrganization": fhir.Reference{
			Reference: fhir.FormatReference("Organization", l.OrganizationID.String()),
			Type:      "Organization",
		},
	}

	if l.Line1 != "" || l.City != "" {
		addr := fhir.NewAddress(l.AddressUse, l.Line1, l.Line2, l.City, l.State, l.Zip)
		result["address"] = addr
	}
	if l.HasCoordinates() {
		result["position"] = map[string]float64{
			"latitude":  *l.Latitude,
			"longitude": *l.Longitude,
		}
	}

	return result
}
