package affiliation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

type fakeRepo struct {
	affiliations []*Affiliation
	byOrg        map[uuid.UUID]*Affiliation
}

func (f *fakeRepo) Search(_ context.Context, _ []fhir.SortSpec, page pagination.Params) ([]*Affiliation, int, error) {
	result := f.affiliations
	if len(result) > page.Limit() {
		result = result[:page.Limit()]
	}
	return result, len(f.affiliations), nil
}

func (f *fakeRepo) GetByOrganizationID(_ context.Context, orgID uuid.UUID) (*Affiliation, error) {
	if a, ok := f.byOrg[orgID]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

func newTestHandler(repo *fakeRepo) *Handler {
	return NewHandler(NewService(repo), "http://localhost:8080")
}

func doRequest(h echo.HandlerFunc, target string, paramName, paramValue string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestSearchBundle(t *testing.T) {
	repo := &fakeRepo{affiliations: []*Affiliation{epicAffiliation()}}
	h := newTestHandler(repo)

	rec := doRequest(h.Search, "/fhir/OrganizationAffiliation", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "Bundle" {
		t.Fatalf("resourceType = %v", body["resourceType"])
	}
	entries := body["entry"].([]interface{})
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	resource := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	if resource["id"] != "6f1f2f3a-4b5c-6d7e-8f90-a1b2c3d4e5f6" {
		t.Errorf("resource id = %v, want organization id", resource["id"])
	}
	org := resource["organization"].(map[string]interface{})
	if org["display"] != "Epic" {
		t.Errorf("vendor display = %v", org["display"])
	}
}

func TestSearchEmptyBundleHasEntryArray(t *testing.T) {
	h := newTestHandler(&fakeRepo{})

	rec := doRequest(h.Search, "/fhir/OrganizationAffiliation", "", "")

	body := decodeBody(t, rec)
	if _, ok := body["entry"].([]interface{}); !ok {
		t.Fatalf("entry must be a JSON array even when empty: %v", body["entry"])
	}
}

func TestGetByOrganizationID(t *testing.T) {
	a := epicAffiliation()
	repo := &fakeRepo{byOrg: map[uuid.UUID]*Affiliation{a.OrganizationID: a}}
	h := newTestHandler(repo)

	rec := doRequest(h.Get, "/fhir/OrganizationAffiliation/"+a.OrganizationID.String(),
		"id", a.OrganizationID.String())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "OrganizationAffiliation" {
		t.Fatalf("body = %v", body)
	}
}

func TestGetIneligibleOrganizationIs404(t *testing.T) {
	h := newTestHandler(&fakeRepo{})

	id := uuid.New().String()
	rec := doRequest(h.Get, "/fhir/OrganizationAffiliation/"+id, "id", id)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "OperationOutcome" {
		t.Fatalf("body = %v", body)
	}
}

func TestGetMalformedIDIs404(t *testing.T) {
	h := newTestHandler(&fakeRepo{})

	for _, id := range []string{"not-a-uuid", "12345", ""} {
		rec := doRequest(h.Get, "/fhir/OrganizationAffiliation/"+id, "id", id)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("id %q: status = %d", id, rec.Code)
		}
	}
}
