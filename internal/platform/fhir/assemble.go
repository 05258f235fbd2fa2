package fhir

import (
	"fmt"
	"strings"
	"time"
)

// Shared element constructors used by the resource assemblers. Each one
// shapes a relational fragment (name row, phone row, identifier row) into
// its FHIR element.

// NewHumanName builds a HumanName from name-part columns. The text field
// joins the non-empty parts in display order.
func NewHumanName(use string, prefix, first, middle, last, suffix *string, start, end *time.Time) HumanName {
	parts := make([]string, 0, 5)
	for _, p := range []*string{prefix, first, middle, last, suffix} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}

	name := HumanName{
		Use:  use,
		Text: strings.Join(parts, " "),
	}
	if last != nil && *last != "" {
		name.Family = *last
	}
	for _, g := range []*string{first, middle} {
		if g != nil && *g != "" {
			name.Given = append(name.Given, *g)
		}
	}
	if prefix != nil && *prefix != "" {
		name.Prefix = []string{*prefix}
	}
	if suffix != nil && *suffix != "" {
		name.Suffix = []string{*suffix}
	}
	if start != nil || end != nil {
		name.Period = &Period{Start: DateString(start), End: DateString(end)}
	}
	return name
}

// PhoneContactPoint formats a phone row; a stored extension is appended to
// the value as "ext. N".
func PhoneContactPoint(number, use string, extension *string) ContactPoint {
	value := number
	if extension != nil && *extension != "" {
		value += fmt.Sprintf(" ext. %s", *extension)
	}
	return ContactPoint{System: "phone", Use: use, Value: value}
}

func EmailContactPoint(address string) ContactPoint {
	return ContactPoint{System: "email", Value: address}
}

// NewAddress builds a US address from flattened columns, dropping the empty
// second line.
func NewAddress(use string, line1 string, line2 *string, city, state, postalCode string) Address {
	lines := []string{line1}
	if line2 != nil && *line2 != "" {
		lines = append(lines, *line2)
	}
	return Address{
		Use:        use,
		Line:       lines,
		City:       city,
		State:      state,
		PostalCode: postalCode,
		Country:    "US",
	}
}

// NPIIdentifier builds the official PRN identifier carried by every
// NPI-enumerated resource, bounded by the enumeration and deactivation
// dates.
func NPIIdentifier(npi int64, enumerated, deactivated *time.Time) Identifier {
	return Identifier{
		Use:    "official",
		System: SystemNPI,
		Value:  fmt.Sprintf("%d", npi),
		Type: &CodeableConcept{
			Coding: []Coding{{
				System:  SystemV2IDType,
				Code:    "PRN",
				Display: "Provider number",
			}},
		},
		Period: &Period{Start: DateString(enumerated), End: DateString(deactivated)},
	}
}

// OtherIdentifier builds an identifier for a state license, Medicaid id or
// similar, typed against the v2-0203 code system.
func OtherIdentifier(typeCode, typeDisplay, value string, issued, expires *time.Time) Identifier {
	return Identifier{
		Value: value,
		Type: &CodeableConcept{
			Coding: []Coding{{
				System:  SystemV2IDType,
				Code:    typeCode,
				Display: typeDisplay,
			}},
		},
		Period: &Period{Start: DateString(issued), End: DateString(expires)},
	}
}

// TaxonomyQualification builds a qualification entry for a NUCC taxonomy
// code.
func TaxonomyQualification(code, display string) Qualification {
	return Qualification{
		Code: CodeableConcept{
			Coding: []Coding{{
				System:  SystemNUCCTaxonomy,
				Code:    code,
				Display: display,
			}},
		},
	}
}
