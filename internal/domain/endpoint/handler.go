package endpoint

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
		{Name: "name", Type: "string", Documentation: "Substring match on endpoint name"},
		{Name: "connection_type", Type: "token", Documentation: "Substring match on connection type code"},
		{Name: "payload_type", Type: "token", Documentation: "Substring match on payload type code"},
		{Name: "organization", Type: "string", Documentation: "Exact organization name, via linked locations"},
		{Name: "organization_id", Type: "token", Documentation: "Organization UUID, via linked locations"},
		{Name: "_sort", Type: "string", Documentation: "Comma-separated sort fields; - prefix for descending"},
	}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group, capability *fhir.CapabilityBuilder) {
	fhirGroup.GET("/Endpoint", h.Search)
	fhirGroup.GET("/Endpoint/:id", h.Get)
	capability.AddResource("Endpoint", SearchParams())
}

func (h *Handler) Search(c echo.Context) error {
	f := Filters{
		Name:             c.QueryParam("name"),
		ConnectionType:   c.QueryParam("connection_type"),
		PayloadType:      c.QueryParam("payload_type"),
		OrganizationName: c.QueryParam("organization"),
		OrganizationID:   c.QueryParam("organization_id"),
	}
	sorts := fhir.ParseSort(c.QueryParam("_sort"))
	page := pagination.FromContext(c)

	endpoints, total, err := h.svc.Search(c.Request().Context(), f, sorts, page)
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("endpoint search failed"))
	}

	resources := make([]map[string]interface{}, len(endpoints))
	for i, e := range endpoints {
		resources[i] = e.ToFHIR()
	}
	links := page.Links(h.baseURL+"/fhir/Endpoint", total)
	return fhir.JSON(c, http.StatusOK, fhir.NewSearchBundle(resources, h.baseURL, links))
}

func (h *Handler) Get(c echo.Context) error {
	id := c.Param("id")
	e, err := h.svc.Get(c.Request().Context(), id)
	if err == ErrNotFound {
		return fhir.JSON(c, http.StatusNotFound, fhir.NotFoundOutcome("Endpoint", id))
	}
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("endpoint lookup failed"))
	}
	return fhir.JSON(c, http.StatusOK, e.ToFHIR())
}
