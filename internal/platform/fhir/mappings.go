package fhir

import "sort"

// NoMatchCode is substituted for unknown mapping inputs so the resulting
// predicate can never match a row. Unknown enum values fail closed rather than
// leaking an unfiltered listing.
const NoMatchCode = "-1"

// CodeMap is a fixed bidirectional mapping between external FHIR vocabulary
// values and the directory's internal storage codes.
type CodeMap struct {
	toInternal map[string]string
	toFHIR     map[string]string
}

func NewCodeMap(pairs map[string]string) *CodeMap {
	m := &CodeMap{
		toInternal: make(map[string]string, len(pairs)),
		toFHIR:     make(map[string]string, len(pairs)),
	}
	for fhirVal, internal := range pairs {
		m.toInternal[fhirVal] = internal
		m.toFHIR[internal] = fhirVal
	}
	return m
}

// ToInternal translates a FHIR-side value to the internal code.
func (m *CodeMap) ToInternal(fhirValue string) (string, bool) {
	code, ok := m.toInternal[fhirValue]
	return code, ok
}

// ToFHIR translates an internal code back to the FHIR-side value.
func (m *CodeMap) ToFHIR(internal string) (string, bool) {
	v, ok := m.toFHIR[internal]
	return v, ok
}

// InternalOrNoMatch translates a FHIR-side value, substituting NoMatchCode
// when the value is unknown.
func (m *CodeMap) InternalOrNoMatch(fhirValue string) string {
	if code, ok := m.toInternal[fhirValue]; ok {
		return code
	}
	return NoMatchCode
}

// Keys returns the FHIR-side valid values in stable order.
func (m *CodeMap) Keys() []string {
	keys := make([]string, 0, len(m.toInternal))
	for k := range m.toInternal {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GenderMap translates FHIR administrative-gender codes to the directory's
// single-letter storage codes.
var GenderMap = NewCodeMap(map[string]string{
	"male":   "M",
	"female": "F",
	"other":  "X",
})

// AddressUseMap translates FHIR address-use codes to the directory's numeric
// address-use ids.
var AddressUseMap = NewCodeMap(map[string]string{
	"home":    "1",
	"work":    "2",
	"temp":    "3",
	"old":     "4",
	"billing": "5",
})
