package practitioner

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Practitioner, int, error) {
	return s.repo.Search(ctx, f, sorts, page)
}

// Get resolves a detail-route id: an NPI-shaped id looks up the enumerated
// provider, a UUID looks up the individual row. Anything else is not found —
// malformed ids never surface as 400s.
func (s *Service) Get(ctx context.Context, id string) (*Practitioner, error) {
	if fhir.IsNPIShaped(id) {
		npi, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, ErrNotFound
		}
		return s.repo.GetByNPI(ctx, npi)
	}

	individualID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, individualID)
}
