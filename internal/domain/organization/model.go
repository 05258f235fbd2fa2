// Package organization serves FHIR Organization resources over the
// directory's organization tables, including EHR vendors surfaced as minimal
// organizations.
package organization

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// Kind discriminates the two entity shapes served as Organization. Vendors
// are non-clinical entities that still need an Organization rendering, so the
// assembler branches on an explicit tag rather than probing fields.
type Kind int

const (
	KindClinical Kind = iota
	KindVendor
)

// Organization is the assembled entity graph for one organization row plus
// its prefetched associations.
type Organization struct {
	ID       uuid.UUID
	Kind     Kind
	ParentID *uuid.UUID
	EINID    *uuid.UUID

	// VendorName is the display name when Kind is KindVendor; clinical
	// organizations carry their names in Names.
	VendorName string

	Names     []Name
	Addresses []Address
	Clinical  *ClinicalDetail
	Official  *Official
}

// Name is one row of the organization's name set. Exactly one should be
// primary when names exist; the rest become aliases.
type Name struct {
	Value     string
	IsPrimary bool
}

// Address is a flattened US address association with its use code.
type Address struct {
	AddressID uuid.UUID
	Use       string
	Line1     string
	Line2     *string
	City      string
	State     string
	Zip       string
}

// ClinicalDetail is the 1:1 clinical extension: NPI enumeration plus
// licensing identifiers and taxonomy codes.
type ClinicalDetail struct {
	NPI              int64
	EnumerationDate  *time.Time
	DeactivationDate *time.Time
	OtherIDs         []OtherID
	Taxonomies       []Taxonomy
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

// Official is the organization's authorized official, an individual with
// their own name and telecom sets.
type Official struct {
	Names  []PersonName
	Phones []Phone
	Emails []string
}

type PersonName struct {
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

// FHIRID is the identifier used in detail routes and bundle fullUrls: the
// NPI when the organization is enumerated, otherwise the row UUID. Clinical
// detail can be present without an NPI when only other-id or taxonomy rows
// exist for the organization.
func (o *Organization) FHIRID() string {
	if o.Clinical != nil && o.Clinical.NPI != 0 {
		return fmt.Sprintf("%d", o.Clinical.NPI)
	}
	return o.ID.String()
}

// PrimaryName returns the primary name value, falling back to the first name
// on dirty data with no primary flag set.
func (o *Organization) PrimaryName() string {
	if o.Kind == KindVendor {
		return o.VendorName
	}
	for _, n := range o.Names {
		if n.IsPrimary {
			return n.Value
		}
	}
	if len(o.Names) > 0 {
		return o.Names[0].Value
	}
	return ""
}

// ToFHIR assembles the FHIR Organization resource. Vendors short-circuit to
// a minimal rendering with no clinical fields.
func (o *Organization) ToFHIR() map[string]interface{} {
	if o.Kind == KindVendor {
		return map[string]interface{}{
			"resourceType": "Organization",
			"id":           o.ID.String(),
			"name":         o.VendorName,
			"identifier":   []fhir.Identifier{},
		}
	}

	result := map[string]interface{}{
		"resourceType": "Organization",
		"id":           o.FHIRID(),
		"meta":         fhir.Meta{Profile: []string{fhir.ProfileUSCoreOrganization}},
		"name":         o.PrimaryName(),
		"identifier":   o.identifiers(),
	}

	if aliases := o.aliases(); len(aliases) > 0 {
		result["alias"] = aliases
	}
	if o.ParentID != nil {
		result["partOf"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", o.ParentID.String()),
			Type:      "Organization",
		}
	}
	if contact := o.contact(); contact != nil {
		result["contact"] = []fhir.Contact{*contact}
	}
	if o.Clinical != nil && len(o.Clinical.Taxonomies) > 0 {
		quals := make([]fhir.Qualification, len(o.Clinical.Taxonomies))
		for i, t := range o.Clinical.Taxonomies {
			quals[i] = fhir.TaxonomyQualification(t.Code, t.DisplayName)
		}
		result["qualification"] = quals
	}

	return result
}

func (o *Organization) aliases() []string {
	hasPrimary := false
	for _, n := range o.Names {
		if n.IsPrimary {
			hasPrimary = true
			break
		}
	}

	var aliases []string
	for i, n := range o.Names {
		if n.IsPrimary {
			continue
		}
		if !hasPrimary && i == 0 {
			// First name was promoted to the primary slot.
			continue
		}
		aliases = append(aliases, n.Value)
	}
	return aliases
}

func (o *Organization) identifiers() []fhir.Identifier {
	ids := []fhir.Identifier{}
	if o.Clinical != nil {
		if o.Clinical.NPI != 0 {
			ids = append(ids, fhir.NPIIdentifier(o.Clinical.NPI, o.Clinical.EnumerationDate, o.Clinical.DeactivationDate))
		}
		for _, other := range o.Clinical.OtherIDs {
			ids = append(ids, fhir.OtherIdentifier(other.TypeCode, other.TypeDisplay, other.Value, other.IssueDate, other.ExpiryDate))
		}
	}
	if o.EINID != nil {
		ids = append(ids, fhir.Identifier{
			Value: o.EINID.String(),
			Type: &fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System:  fhir.SystemV2IDType,
					Code:    "EN",
					Display: "Employer number",
				}},
			},
		})
	}
	return ids
}

// contact renders the authorized official. The official's name is the first
// of their name entries; the address comes from the organization's own
// address set and is omitted entirely when the organization has none.
func (o *Organization) contact() *fhir.Contact {
	if o.Official == nil {
		return nil
	}

	contact := fhir.Contact{}
	if len(o.Official.Names) > 0 {
		n := o.Official.Names[0]
		name := fhir.NewHumanName(n.Use, n.Prefix, n.First, n.Middle, n.Last, n.Suffix, n.StartDate, n.EndDate)
		contact.Name = &name
	}

	telecom := make([]fhir.ContactPoint, 0, len(o.Official.Phones)+len(o.Official.Emails))
	for _, p := range o.Official.Phones {
		telecom = append(telecom, fhir.PhoneContactPoint(p.Number, p.Use, p.Extension))
	}
	for _, e := range o.Official.Emails {
		telecom = append(telecom, fhir.EmailContactPoint(e))
	}
	if len(telecom) > 0 {
		contact.Telecom = telecom
	}

	if len(o.Addresses) > 0 {
		a := o.Addresses[0]
		addr := fhir.NewAddress(a.Use, a.Line1, a.Line2, a.City, a.State, a.Zip)
		contact.Address = &addr
	}

	return &contact
}
