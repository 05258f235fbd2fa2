package practitionerrole

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

func (s *Service) Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Role, int, error) {
	return s.repo.Search(ctx, f, sorts, page)
}

// Get resolves a detail-route id. Roles are keyed by UUID only; malformed
// ids are not found, never 400s.
func (s *Service) Get(ctx context.Context, id string) (*Role, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, roleID)
}
