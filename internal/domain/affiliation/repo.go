package affiliation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

// ErrNotFound is returned for organizations with no endpoint-linked
// location, as well as for unknown ids.
var ErrNotFound = errors.New("organization affiliation not found")

// Repository is the read-side query interface over the derived
// organization/vendor pairing.
type Repository interface {
	Search(ctx context.Context, sorts []fhir.SortSpec, page pagination.Params) ([]*Affiliation, int, error)
	GetByOrganizationID(ctx context.Context, orgID uuid.UUID) (*Affiliation, error)
}
