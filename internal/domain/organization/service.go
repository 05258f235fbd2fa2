package organization

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

func (s *Service) Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Organization, int, error) {
	return s.repo.Search(ctx, f, sorts, page)
}

// Get resolves a detail-route id: an NPI-shaped id looks up the enumerated
// clinical organization, a UUID looks up the organization row and falls back
// to an EHR vendor with the same id. Anything else is not found — malformed
// ids never surface as 400s.
func (s *Service) Get(ctx context.Context, id string) (*Organization, error) {
	if fhir.IsNPIShaped(id) {
		npi, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, ErrNotFound
		}
		return s.repo.GetByNPI(ctx, npi)
	}

	orgID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	org, err := s.repo.GetByID(ctx, orgID)
	if err == ErrNotFound {
		return s.repo.GetVendorByID(ctx, orgID)
	}
	return org, err
}
