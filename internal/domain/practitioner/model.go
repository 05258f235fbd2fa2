// Package practitioner serves FHIR Practitioner resources over the provider
// and individual tables.
package practitioner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// Practitioner is the assembled entity graph for one enumerated provider and
// the individual record behind it.
type Practitioner struct {
	// ID is the individual row id; providers key on their individual.
	ID               uuid.UUID
	NPI              int64
	EnumerationDate  *time.Time
	DeactivationDate *time.Time

	Names      []Name
	Phones     []Phone
	Emails     []string
	Addresses  []Address
	OtherIDs   []OtherID
	Taxonomies []Taxonomy
}

type Name struct {
	Use       string
	Prefix    *string
	First     *string
	Middle    *string
	Last      *string
	Suffix    *string
	StartDate *time.Time
	EndDate   *time.Time
}

type Phone struct {
	Number    string
	Use       string
	Extension *string
}

type Address struct {
	AddressID uuid.UUID
	Use       string
	Line1     string
	Line2     *string
	City      string
	State     string
	Zip       string
}

type OtherID struct {
	TypeCode    string
	TypeDisplay string
	Value       string
	IssueDate   *time.Time
	ExpiryDate  *time.Time
}

type Taxonomy struct {
	Code        string
	DisplayName string
}

// FHIRID is the identifier used in detail routes and bundle fullUrls: the
// NPI when the provider is enumerated, otherwise the individual UUID.
func (p *Practitioner) FHIRID() string {
	if p.NPI != 0 {
		return fmt.Sprintf("%d", p.NPI)
	}
	return p.ID.String()
}

// ToFHIR assembles the FHIR Practitioner resource.
func (p *Practitioner) ToFHIR() map[string]interface{} {
	names := make([]fhir.HumanName, len(p.Names))
	for i, n := range p.Names {
		names[i] = fhir.NewHumanName(n.Use, n.Prefix, n.First, n.Middle, n.Last, n.Suffix, n.StartDate, n.EndDate)
	}

	result := map[string]interface{}{
		"resourceType": "Practitioner",
		"id":           p.FHIRID(),
		"meta":         fhir.Meta{Profile: []string{fhir.ProfileUSCorePractitioner}},
		"identifier":   p.identifiers(),
		"name":         names,
	}

	if telecom := p.telecom(); len(telecom) > 0 {
		result["telecom"] = telecom
	}
	if len(p.Addresses) > 0 {
		addrs := make([]fhir.Address, len(p.Addresses))
		for i, a := range p.Addresses {
			addrs[i] = fhir.NewAddress(a.Use, a.Line1, a.Line2, a.City, a.State, a.Zip)
		}
		result["address"] = addrs
	}
	if len(p.Taxonomies) > 0 {
		quals := make([]fhir.Qualification, len(p.Taxonomies))
		for i, t := range p.Taxonomies {
			quals[i] = fhir.TaxonomyQualification(t.Code, t.DisplayName)
		}
		result["qualification"] = quals
	}

	return result
}

func (p *Practitioner) identifiers() []fhir.Identifier {
	ids := []fhir.Identifier{fhir.NPIIdentifier(p.NPI, p.EnumerationDate, p.DeactivationDate)}
	for _, other := range p.OtherIDs {
		ids = append(ids, fhir.OtherIdentifier(other.TypeCode, other.TypeDisplay, other.Value, other.IssueDate, other.ExpiryDate))
	}
	return ids
}

func (p *Practitioner) telecom() []fhir.ContactPoint {
	telecom := make([]fhir.ContactPoint, 0, len(p.Phones)+len(p.Emails))
	for _, ph := range p.Phones {
		telecom = append(telecom, fhir.PhoneContactPoint(ph.Number, ph.Use, ph.Extension))
	}
	for _, e := range p.Emails {
		telecom = append(telecom, fhir.EmailContactPoint(e))
	}
	return telecom
}
