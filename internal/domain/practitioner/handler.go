package practitioner

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
		{Name: "identifier", Type: "token", Documentation: "Format: value or NPI|value"},
		{Name: "name", Type: "string", Documentation: "Search first, middle and last names (token match)"},
		{Name: "gender", Type: "token", Documentation: "male | female | other"},
		{Name: "practitioner_type", Type: "string", Documentation: "NUCC taxonomy display name"},
		{Name: "address", Type: "string", Documentation: "Search any part of the address"},
		{Name: "address_city", Type: "string"},
		{Name: "address_state", Type: "string", Documentation: "2-letter US state abbreviation"},
		{Name: "address_postalcode", Type: "string"},
		{Name: "address_use", Type: "token", Documentation: "home | work | temp | old | billing"},
		{Name: "_sort", Type: "string", Documentation: "Comma-separated sort fields; - prefix for descending"},
	}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group, capability *fhir.CapabilityBuilder) {
	fhirGroup.GET("/Practitioner", h.Search)
	fhirGroup.GET("/Practitioner/:id", h.Get)
	capability.AddResource("Practitioner", SearchParams())
}

func (h *Handler) Search(c echo.Context) error {
	f := Filters{
		Identifier:       c.QueryParam("identifier"),
		Name:             c.QueryParam("name"),
		Gender:           c.QueryParam("gender"),
		PractitionerType: c.QueryParam("practitioner_type"),
		Address:          c.QueryParam("address"),
		AddressCity:      fhir.QueryParam(c, "address_city", "address-city"),
		AddressState:     fhir.QueryParam(c, "address_state", "address-state"),
		AddressPostal:    fhir.QueryParam(c, "address_postalcode", "address-postalcode"),
		AddressUse:       fhir.QueryParam(c, "address_use", "address-use"),
	}
	sorts := fhir.ParseSort(c.QueryParam("_sort"))
	page := pagination.FromContext(c)

	practitioners, total, err := h.svc.Search(c.Request().Context(), f, sorts, page)
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("practitioner search failed"))
	}

	resources := make([]map[string]interface{}, len(practitioners))
	for i, p := range practitioners {
		resources[i] = p.ToFHIR()
	}
	links := page.Links(h.baseURL+"/fhir/Practitioner", total)
	return fhir.JSON(c, http.StatusOK, fhir.NewSearchBundle(resources, h.baseURL, links))
}

func (h *Handler) Get(c echo.Context) error {
	id := c.Param("id")
	p, err := h.svc.Get(c.Request().Context(), id)
	if err == ErrNotFound {
		return fhir.JSON(c, http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", id))
	}
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("practitioner lookup failed"))
	}
	return fhir.JSON(c, http.StatusOK, p.ToFHIR())
}
