package fhir

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
)

// MIMEFHIRJSON is the content type for all FHIR responses.
const MIMEFHIRJSON = "application/fhir+json"

// Coding and terminology systems used across assemblers.
const (
	SystemNPI          = "http://terminology.hl7.org/NamingSystem/npi"
	SystemV2IDType     = "http://terminology.hl7.org/CodeSystem/v2-0203"
	SystemNUCCTaxonomy = "http://nucc.org/provider-taxonomy"

	ProfileUSCorePractitioner = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-practitioner"
	ProfileUSCoreOrganization = "http://hl7.org/fhir/us/core/StructureDefinition/us-core-organization"
)

type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Profile     []string `json:"profile,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Period holds FHIR date bounds, already formatted as YYYY-MM-DD.
type Period struct {
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
	Period *Period          `json:"period,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
	Period *Period  `json:"period,omitempty"`
}

type Address struct {
	Use        string   `json:"use,omitempty"`
	Type       string   `json:"type,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

// Qualification represents a practitioner or organization credential entry.
type Qualification struct {
	Identifier []Identifier    `json:"identifier,omitempty"`
	Code       CodeableConcept `json:"code"`
	Period     *Period         `json:"period,omitempty"`
}

// Contact represents an Organization.contact entry (authorized official).
type Contact struct {
	Name    *HumanName     `json:"name,omitempty"`
	Telecom []ContactPoint `json:"telecom,omitempty"`
	Address *Address       `json:"address,omitempty"`
}

// OperationOutcome is the FHIR error resource returned on failures.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{Severity: severity, Code: code, Diagnostics: diagnostics},
		},
	}
}

func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome("error", "processing", diagnostics)
}

func NotFoundOutcome(resourceType, id string) *OperationOutcome {
	return NewOperationOutcome("error", "not-found", resourceType+"/"+id+" not found")
}

// FormatReference builds a relative FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// AbsoluteReference builds a Reference from the server base URL and the
// resource's detail route.
func AbsoluteReference(baseURL, resourceType, id string) Reference {
	return Reference{Reference: fmt.Sprintf("%s/fhir/%s/%s", baseURL, resourceType, id), Type: resourceType}
}

// DateString formats a time as a FHIR date, nil-safe.
func DateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// JSON writes v with the FHIR content type. Echo's c.JSON would emit
// application/json, which FHIR clients reject.
func JSON(c echo.Context, code int, v interface{}) error {
	c.Response().Header().Set(echo.HeaderContentType, MIMEFHIRJSON)
	c.Response().WriteHeader(code)
	return json.NewEncoder(c.Response()).Encode(v)
}

// QueryParam returns the first non-empty query parameter among names. The
// address filters are documented with underscores but some clients send the
// FHIR hyphenated spellings; both are accepted.
func QueryParam(c echo.Context, names ...string) string {
	for _, name := range names {
		if v := c.QueryParam(name); v != "" {
			return v
		}
	}
	return ""
}
