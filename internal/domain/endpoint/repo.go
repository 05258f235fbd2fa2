package endpoint

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

// ErrNotFound is returned when no endpoint instance resolves for an id.
var ErrNotFound = errors.New("endpoint not found")

// Filters holds the recognized Endpoint search parameters. Empty fields
// apply no restriction; each populated field composes with AND.
type Filters struct {
	Name             string
	ConnectionType   string
	PayloadType      string
	OrganizationName string
	OrganizationID   string
}

// Repository is the read-side query interface over the endpoint tables.
type Repository interface {
	Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Endpoint, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Endpoint, error)
}
