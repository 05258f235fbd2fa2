// Package endpoint serves FHIR Endpoint resources over the endpoint
// instance tables.
package endpoint

import (
	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
)

// SystemConnectionType is the FHIR code system for endpoint connection
// types.
const SystemConnectionType = "http://terminology.hl7.org/CodeSystem/endpoint-connection-type"

// Defaults applied when the stored connection type is missing; legacy rows
// predate the column being required.
const (
	DefaultConnectionCode    = "hl7-fhir-rest"
	DefaultConnectionDisplay = "HL7 FHIR"
)

// Endpoint is the assembled entity graph for one endpoint instance and its
// payload associations.
type Endpoint struct {
	ID          uuid.UUID
	Name        string
	Address     string
	Environment string

	ConnectionCode    string
	ConnectionDisplay string

	// VendorID references the owning EHR vendor, rendered as an
	// Organization reference.
	VendorID *uuid.UUID

	Payloads []Payload
}

// Payload is one payload-type association on the endpoint.
type Payload struct {
	Code  string
	Value string
}

// ToFHIR assembles the FHIR Endpoint resource.
func (e *Endpoint) ToFHIR() map[string]interface{} {
	code, display := e.ConnectionCode, e.ConnectionDisplay
	if code == "" {
		code, display = DefaultConnectionCode, DefaultConnectionDisplay
	}

	result := map[string]interface{}{
		"resourceType": "Endpoint",
		"id":           e.ID.String(),
		"status":       "active",
		"name":         e.Name,
		"address":      e.Address,
		"connectionType": fhir.Coding{
			System:  SystemConnectionType,
			Code:    code,
			Display: display,
		},
	}

	if len(e.Payloads) > 0 {
		payloads := make([]fhir.CodeableConcept, len(e.Payloads))
		for i, p := range e.Payloads {
			payloads[i] = fhir.CodeableConcept{
				Coding: []fhir.Coding{{Code: p.Code, Display: p.Value}},
			}
		}
		result["payloadType"] = payloads
	}
	if e.VendorID != nil {
		result["managingOrganization"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", e.VendorID.String()),
			Type:      "Organization",
		}
	}

	return result
}
