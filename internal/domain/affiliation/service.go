package affiliation

import (
	"context"

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

func (s *Service) Search(ctx context.Context, sorts []fhir.SortSpec, page pagination.Params) ([]*Affiliation, int, error) {
	return s.repo.Search(ctx, sorts, page)
}

// Get resolves a detail-route id, which is the participating organization's
// UUID. Malformed ids are not found, never 400s.
func (s *Service) Get(ctx context.Context, id string) (*Affiliation, error) {
	orgID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByOrganizationID(ctx, orgID)
}
