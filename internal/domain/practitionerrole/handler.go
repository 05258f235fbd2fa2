package practitionerrole

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

type Handler struct {
	svc     *Service
	baseURL string
}

func NewHandler(svc *Service, baseURL string) *Handler {
	return &Handler{svc: svc, baseURL: baseURL}
}

// SearchParams describes the filters this resource supports; served through
// the capability statement.
func SearchParams() []fhir.SearchParam {
	return []fhir.SearchParam{
		{Name: "practitioner_name", Type: "string", Documentation: "Search the practitioner's first, middle and last names"},
		{Name: "practitioner_gender", Type: "token", Documentation: "male | female | other"},
		{Name: "practitioner_type", Type: "string", Documentation: "Practitioner's NUCC taxonomy display name"},
		{Name: "practitioner_identifier", Type: "token", Documentation: "Format: value or NPI|value"},
		{Name: "organization_name", Type: "string"},
		{Name: "organization_type", Type: "token", Documentation: "Organization's NUCC taxonomy code"},
		{Name: "active", Type: "token", Documentation: "true | false"},
		{Name: "role", Type: "token", Documentation: "Provider role code (case-insensitive)"},
		{Name: "specialty", Type: "token", Documentation: "Specialty code (case-insensitive)"},
		{Name: "endpoint_connection_type", Type: "token", Documentation: "Connection type of endpoints at the role's location"},
		{Name: "endpoint_payload_type", Type: "token", Documentation: "Payload type of endpoints at the role's location"},
		{Name: "endpoint_organization_id", Type: "token", Documentation: "Organization UUID owning the role's location"},
		{Name: "endpoint_organization_name", Type: "string", Documentation: "Exact name of the organization owning the role's location"},
		{Name: "location_address", Type: "string", Documentation: "Search any part of the location address"},
		{Name: "location_city", Type: "string"},
		{Name: "location_state", Type: "string", Documentation: "2-letter US state abbreviation"},
		{Name: "location_zip_code", Type: "string"},
		{Name: "location_near", Type: "special", Documentation: "Proximity filter on the role's location: lat|lon|distance|unit"},
		{Name: "_sort", Type: "string", Documentation: "Comma-separated sort fields; - prefix for descending"},
	}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group, capability *fhir.CapabilityBuilder) {
	fhirGroup.GET("/PractitionerRole", h.Search)
	fhirGroup.GET("/PractitionerRole/:id", h.Get)
	capability.AddResource("PractitionerRole", SearchParams())
}

func (h *Handler) Search(c echo.Context) error {
	f := Filters{
		PractitionerName:         c.QueryParam("practitioner_name"),
		PractitionerGender:       c.QueryParam("practitioner_gender"),
		PractitionerType:         c.QueryParam("practitioner_type"),
		PractitionerIdentifier:   c.QueryParam("practitioner_identifier"),
		OrganizationName:         c.QueryParam("organization_name"),
		OrganizationType:         c.QueryParam("organization_type"),
		Active:                   c.QueryParam("active"),
		Role:                     c.QueryParam("role"),
		Specialty:                c.QueryParam("specialty"),
		EndpointConnectionType:   c.QueryParam("endpoint_connection_type"),
		EndpointPayloadType:      c.QueryParam("endpoint_payload_type"),
		EndpointOrganizationID:   c.QueryParam("endpoint_organization_id"),
		EndpointOrganizationName: c.QueryParam("endpoint_organization_name"),
		LocationAddress:          c.QueryParam("location_address"),
		LocationCity:             c.QueryParam("location_city"),
		LocationState:            c.QueryParam("location_state"),
		LocationZip:              c.QueryParam("location_zip_code"),
		LocationNear:             c.QueryParam("location_near"),
	}
	sorts := fhir.ParseSort(c.QueryParam("_sort"))
	page := pagination.FromContext(c)

	roles, total, err := h.svc.Search(c.Request().Context(), f, sorts, page)
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("practitioner role search failed"))
	}

	resources := make([]map[string]interface{}, len(roles))
	for i, role := range roles {
		resources[i] = role.ToFHIR(h.baseURL)
	}
	links := page.Links(h.baseURL+"/fhir/PractitionerRole", total)
	return fhir.JSON(c, http.StatusOK, fhir.NewSearchBundle(resources, h.baseURL, links))
}

func (h *Handler) Get(c echo.Context) error {
	id := c.Param("id")
	role, err := h.svc.Get(c.Request().Context(), id)
	if err == ErrNotFound {
		return fhir.JSON(c, http.StatusNotFound, fhir.NotFoundOutcome("PractitionerRole", id))
	}
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("practitioner role lookup failed"))
	}
	return fhir.JSON(c, http.StatusOK, role.ToFHIR(h.baseURL))
}
