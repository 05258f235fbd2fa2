package fhir

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// SearchParam describes one search parameter a resource supports.
type SearchParam struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Documentation string `json:"documentation,omitempty"`
}

// CapabilityBuilder accumulates resource registrations from domain handlers
// and builds the CapabilityStatement served at /fhir/metadata. Handlers call
// AddResource while registering routes, so the statement reflects what is
// actually routable rather than a static list.
type CapabilityBuilder struct {
	mu        sync.RWMutex
	resources map[string]*capabilityResource

	baseURL string
	version string
}

type capabilityResource struct {
	resourceType string
	searchParams []SearchParam
}

func NewCapabilityBuilder(baseURL, version string) *CapabilityBuilder {
	return &CapabilityBuilder{
		resources: map[string]*capabilityResource{},
		baseURL:   baseURL,
		version:   version,
	}
}

// AddResource registers a read-only resource type and its search parameters.
func (b *CapabilityBuilder) AddResource(resourceType string, searchParams []SearchParam) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resources[resourceType] = &capabilityResource{
		resourceType: resourceType,
		searchParams: searchParams,
	}
}

// capability statement wire types

type capabilityStatement struct {
	ResourceType   string           `json:"resourceType"`
	Status         string           `json:"status"`
	Date           string           `json:"date"`
	Kind           string           `json:"kind"`
	FHIRVersion    string           `json:"fhirVersion"`
	Format         []string         `json:"format"`
	Software       *capSoftware     `json:"software,omitempty"`
	Implementation *capImplemention `json:"implementation,omitempty"`
	Rest           []capRest        `json:"rest"`
}

type capSoftware struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type capImplemention struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

type capRest struct {
	Mode     string        `json:"mode"`
	Resource []capResource `json:"resource"`
}

type capResource struct {
	Type        string           `json:"type"`
	Interaction []capInteraction `json:"interaction"`
	SearchParam []SearchParam    `json:"searchParam,omitempty"`
}

type capInteraction struct {
	Code string `json:"code"`
}

// Build assembles the CapabilityStatement from the current registry.
func (b *CapabilityBuilder) Build() interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	resources := make([]capResource, 0, len(names))
	for _, name := range names {
		entry := b.resources[name]
		resources = append(resources, capResource{
			Type: entry.resourceType,
			Interaction: []capInteraction{
				{Code: "read"},
				{Code: "search-type"},
			},
			SearchParam: entry.searchParams,
		})
	}

	return &capabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         time.Now().UTC().Format("2006-01-02"),
		Kind:         "instance",
		FHIRVersion:  "4.0.1",
		Format:       []string{"application/fhir+json"},
		Software:     &capSoftware{Name: "npd-server", Version: b.version},
		Implementation: &capImplemention{
			Description: "National Provider Directory FHIR read API",
			URL:         b.baseURL,
		},
		Rest: []capRest{{Mode: "server", Resource: resources}},
	}
}

// Handler serves /fhir/metadata.
func (b *CapabilityBuilder) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return JSON(c, http.StatusOK, b.Build())
	}
}
