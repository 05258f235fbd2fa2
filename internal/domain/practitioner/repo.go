package practitioner

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

// ErrNotFound is returned when no provider row resolves for an id.
var ErrNotFound = errors.New("practitioner not found")

// Filters holds the recognized Practitioner search parameters. Empty fields
// apply no restriction; each populated field composes with AND.
type Filters struct {
	Identifier       string
	Name             string
	Gender           string
	PractitionerType string
	Address          string
	AddressCity      string
	AddressState     string
	AddressPostal    string
	AddressUse       string
}

// Repository is the read-side query interface over the provider tables.
type Repository interface {
	Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Practitioner, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	GetByNPI(ctx context.Context, npi int64) (*Practitioner, error)
}
