package fhir

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCapabilityBuilder_ReflectsRegisteredResources(t *testing.T) {
	b := NewCapabilityBuilder("http://localhost:8000", "0.1.0")
	b.AddResource("Practitioner", []SearchParam{
		{Name: "identifier", Type: "token"},
		{Name: "name", Type: "string"},
	})
	b.AddResource("Organization", []SearchParam{
		{Name: "name", Type: "string"},
	})

	stmt := b.Build().(*capabilityStatement)

	if stmt.ResourceType != "CapabilityStatement" {
		t.Fatalf("resourceType = %q", stmt.ResourceType)
	}
	if len(stmt.Rest) != 1 || stmt.Rest[0].Mode != "server" {
		t.Fatalf("expected a single server rest entry, got %+v", stmt.Rest)
	}

	resources := stmt.Rest[0].Resource
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}
	// sorted alphabetically for stable output
	if resources[0].Type != "Organization" || resources[1].Type != "Practitioner" {
		t.Errorf("unexpected resource order: %s, %s", resources[0].Type, resources[1].Type)
	}
	if len(resources[1].SearchParam) != 2 {
		t.Errorf("Practitioner should carry 2 search params, got %d", len(resources[1].SearchParam))
	}
	for _, r := range resources {
		if len(r.Interaction) != 2 || r.Interaction[0].Code != "read" || r.Interaction[1].Code != "search-type" {
			t.Errorf("resource %s should be read-only (read + search-type), got %+v", r.Type, r.Interaction)
		}
	}
}

func TestCapabilityBuilder_Handler(t *testing.T) {
	b := NewCapabilityBuilder("http://localhost:8000", "0.1.0")
	b.AddResource("Location", []SearchParam{{Name: "near", Type: "special"}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/fhir/metadata", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := b.Handler()(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != MIMEFHIRJSON {
		t.Errorf("content type = %q, want %q", ct, MIMEFHIRJSON)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["resourceType"] != "CapabilityStatement" {
		t.Errorf("resourceType = %v", body["resourceType"])
	}
	if body["fhirVersion"] != "4.0.1" {
		t.Errorf("fhirVersion = %v", body["fhirVersion"])
	}
}
