package location

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

// ErrNotFound is returned when no location row resolves for an id.
var ErrNotFound = errors.New("location not found")

// Filters holds the recognized Location search parameters. Empty fields
// apply no restriction; each populated field composes with AND.
type Filters struct {
	Name             string
	OrganizationType string
	Address          string
	AddressCity      string
	AddressState     string
	AddressPostal    string
	AddressUse       string

	// Near is the raw "lat|lon|distance|unit" proximity value. Malformed
	// values fail closed with zero results.
	Near string
}

// Repository is the read-side query interface over the location table.
type Repository interface {
	Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Location, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
}
