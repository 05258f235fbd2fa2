package location

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
	locations []*Location
	byID      map[uuid.UUID]*Location

	lastFilters Filters
	lastSorts   []fhir.SortSpec
}

func (f *fakeRepo) Search(_ context.Context, filters Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Location, int, error) {
	f.lastFilters = filters
	f.lastSorts = sorts

	result := f.locations
	if len(result) > page.Limit() {
		result = result[:page.Limit()]
	}
	return result, len(f.locations), nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Location, error) {
	if l, ok := f.byID[id]; ok {
		return l, nil
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

func TestSearchPassesFiltersThrough(t *testing.T) {
	repo := &fakeRepo{}
	h := newTestHandler(repo)

	doRequest(h.Search,
		"/fhir/Location?name=Gateway%20Family%20Clinic&near=38.6%7C-90.2%7C5%7Cmi&address-use=work",
		"", "")

	if repo.lastFilters.Name != "Gateway Family Clinic" {
		t.Fatalf("name = %q", repo.lastFilters.Name)
	}
	if repo.lastFilters.Near != "38.6|-90.2|5|mi" {
		t.Fatalf("near = %q", repo.lastFilters.Near)
	}
	if repo.lastFilters.AddressUse != "work" {
		t.Fatalf("address-use = %q", repo.lastFilters.AddressUse)
	}
}

func TestSearchBindsUnderscoreAddressParameters(t *testing.T) {
	repo := &fakeRepo{}
	h := newTestHandler(repo)

	doRequest(h.Search,
		"/fhir/Location?address_city=Boston&address_state=MA&address_postalcode=02118&address_use=work",
		"", "")

	if repo.lastFilters.AddressCity != "Boston" {
		t.Fatalf("city filter = %q", repo.lastFilters.AddressCity)
	}
	if repo.lastFilters.AddressState != "MA" {
		t.Fatalf("state filter = %q", repo.lastFilters.AddressState)
	}
	if repo.lastFilters.AddressPostal != "02118" {
		t.Fatalf("postalcode filter = %q", repo.lastFilters.AddressPostal)
	}
	if repo.lastFilters.AddressUse != "work" {
		t.Fatalf("use filter = %q", repo.lastFilters.AddressUse)
	}
}

func TestSearchBundleEntriesAndFullURL(t *testing.T) {
	l := stLouisClinic()
	repo := &fakeRepo{locations: []*Location{l}}
	h := newTestHandler(repo)

	rec := doRequest(h.Search, "/fhir/Location", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	entry := body["entry"].([]interface{})[0].(map[string]interface{})
	if entry["fullUrl"] != "http://localhost:8080/fhir/Location/"+l.ID.String() {
		t.Fatalf("fullUrl = %v", entry["fullUrl"])
	}
	resource := entry["resource"].(map[string]interface{})
	if resource["status"] != "active" {
		t.Fatalf("status = %v", resource["status"])
	}
}

func TestGetByUUID(t *testing.T) {
	l := stLouisClinic()
	repo := &fakeRepo{byID: map[uuid.UUID]*Location{l.ID: l}}
	h := newTestHandler(repo)

	rec := doRequest(h.Get, "/fhir/Location/"+l.ID.String(), "id", l.ID.String())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "Location" || body["id"] != l.ID.String() {
		t.Fatalf("body = %v", body)
	}
}

func TestGetMalformedIDIsNotFound(t *testing.T) {
	h := newTestHandler(&fakeRepo{})

	for _, id := range []string{"not-a-uuid", "1234567893"} {
		rec := doRequest(h.Get, "/fhir/Location/"+id, "id", id)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("id %q: status = %d, want 404", id, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["resourceType"] != "OperationOutcome" {
			t.Fatalf("id %q: body = %v", id, body)
		}
	}
}
