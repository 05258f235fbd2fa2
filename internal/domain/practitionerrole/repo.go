package practitionerrole

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

// ErrNotFound is returned when no role row resolves for an id.
var ErrNotFound = errors.New("practitioner role not found")

// Filters holds the recognized PractitionerRole search parameters. Empty
// fields apply no restriction; each populated field composes with AND.
type Filters struct {
	PractitionerName       string
	PractitionerGender     string
	PractitionerType       string
	PractitionerIdentifier string

	OrganizationName string
	OrganizationType string

	Active        string
	Role          string
	Specialty     string

	EndpointConnectionType   string
	EndpointPayloadType      string
	EndpointOrganizationID   string
	EndpointOrganizationName string

	LocationAddress string
	LocationCity    string
	LocationState   string
	LocationZip     string

	// LocationNear is the raw "lat|lon|distance|unit" proximity value for
	// the role's location. Malformed values fail closed with zero results.
	LocationNear string
}

// Repository is the read-side query interface over the provider-to-location
// table.
type Repository interface {
	Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Role, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
}
