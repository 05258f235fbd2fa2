package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

// ErrNotFound is returned when no organization row resolves for an id.
var ErrNotFound = errors.New("organization not found")

// Filters holds the recognized Organization search parameters. Empty fields
// apply no restriction; each populated field composes with AND.
type Filters struct {
	Name             string
	Identifier       string
	OrganizationType string
	Address          string
	AddressCity      string
	AddressState     string
	AddressPostal    string
	AddressUse       string
}

// Repository is the read-side query interface over the organization tables.
type Repository interface {
	Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Organization, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByNPI(ctx context.Context, npi int64) (*Organization, error)
	GetVendorByID(ctx context.Context, id uuid.UUID) (*Organization, error)
}
