package affiliation

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

func SearchParams() []fhir.SearchParam {
	return []fhir.SearchParam{
		{Name: "_sort", Type: "string", Documentation: "Sort by organization_name or ehr_vendor_name; - prefix for descending"},
	}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group, capability *fhir.CapabilityBuilder) {
	fhirGroup.GET("/OrganizationAffiliation", h.Search)
	fhirGroup.GET("/OrganizationAffiliation/:id", h.Get)
	capability.AddResource("OrganizationAffiliation", SearchParams())
}

func (h *Handler) Search(c echo.Context) error {
	sorts := fhir.ParseSort(c.QueryParam("_sort"))
	page := pagination.FromContext(c)

	affiliations, total, err := h.svc.Search(c.Request().Context(), sorts, page)
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("organization affiliation search failed"))
	}

	resources := make([]map[string]interface{}, len(affiliations))
	for i, a := range affiliations {
		resources[i] = a.ToFHIR(h.baseURL)
	}
	links := page.Links(h.baseURL+"/fhir/OrganizationAffiliation", total)
	return fhir.JSON(c, http.StatusOK, fhir.NewSearchBundle(resources, h.baseURL, links))
}

func (h *Handler) Get(c echo.Context) error {
	id := c.Param("id")
	a, err := h.svc.Get(c.Request().Context(), id)
	if err == ErrNotFound {
		return fhir.JSON(c, http.StatusNotFound, fhir.NotFoundOutcome("OrganizationAffiliation", id))
	}
	if err != nil {
		return fhir.JSON(c, http.StatusInternalServerError, fhir.ErrorOutcome("organization affiliation lookup failed"))
	}
	return fhir.JSON(c, http.StatusOK, a.ToFHIR(h.baseURL))
}
