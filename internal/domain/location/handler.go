package location

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
		{Name: "name", Type: "string", Documentation: "Exact location name"},
		{Name: "organization_type", Type: "string", Documentation: "Owning organization's NUCC taxonomy display name"},
		{Name: "address", Type: "string", Documentation: "Search any part of the address"},
		{Name: "address_city", Type: "string"},
		{Name: "address_state", Type: "string", Documentation: "2-letter US state abbreviation"},
		{Name: "address_postalcode", Type: "string"},
		{Name: "address_use", Type: "token", Documentation: "home | work | temp | old | billing"},
		{Name: "near", Type: "special", Documentation: "Proximity filter: lat|lon|distance|unit (km, mi or ft; default km)"},
		{Name: "_sort", Type: "string", Documentation: "Comma-separated sort fields; - prefix for descending"},
	}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group, capability *fhir.CapabilityBuilder) {
	fhirGroup.GET("/Location", h.Search)
	fhirGroup.GET("/Location/:id", h.Get)
	capability.AddResource("Location", SearchParams())
}

func (h *Handler) Search(c echo.Context) error {
	f := Filters{
		Name:             c.QueryParam("name"),
		OrganizationType: c.QueryParam("organization_type"),
		Address:          c.QueryParam("address"),
		AddressCity:      fhir.QueryParam(c, "address_city", "address-city"),
		AddressState:     fhir.QueryParam(c, "address_state", "address-state"),
		AddressPostal:    fhir.QueryParam(c, "address_postalcode", "address-postalcode"),
		AddressUse:       fhir.QueryParam(c, "address_use", "address-use"),
		Near:             c.QueryParam("near"),
	}
	sorts := fhir.ParseSort(c.QueryParam("_sort"))
	page := pagination.FromContext(c)

	locations, total, err := h.svc.Search(c.Request().Context(), f, sorts, page)
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("location search failed"))
	}

	resources := make([]map[string]interface{}, len(locations))
	for i, l := range locations {
		resources[i] = l.ToFHIR()
	}
	links := page.Links(h.baseURL+"/fhir/Location", total)
	return fhir.JSON(c, http.StatusOK, fhir.NewSearchBundle(resources, h.baseURL, links))
}

func (h *Handler) Get(c echo.Context) error {
	id := c.Param("id")
	l, err := h.svc.Get(c.Request().Context(), id)
	if err == ErrNotFound {
		return fhir.JSON(c, http.StatusNotFound, fhir.NotFoundOutcome("Location", id))
	}
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("location lookup failed"))
	}
	return fhir.JSON(c, http.StatusOK, l.ToFHIR())
}
