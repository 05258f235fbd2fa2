package affiliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/npd/provider-directory/internal/platform/db"
	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

// pairsFrom is the derived table of distinct organization/vendor pairs. Only
// organizations with at least one location linked to an endpoint instance
// appear; everything downstream selects from this.
const pairsFrom = `(SELECT DISTINCT o.id AS organization_id,
	(SELECT n.name FROM organization_to_name n
		WHERE n.organization_id = o.id ORDER BY n.is_primary DESC, n.name LIMIT 1) AS organization_name,
	v.id AS vendor_id, v.name AS vendor_name
	FROM organization o
	JOIN location l ON l.organization_id = o.id
	JOIN location_to_endpoint_instance le ON le.location_id = l.id
	JOIN endpoint_instance e ON e.id = le.endpoint_instance_id
	JOIN ehr_vendor v ON v.id = e.ehr_vendor_id) pairs`

var sortFields = map[string]string{
	"organization_name": "lower(organization_name)",
	"ehr_vendor_name":   "lower(vendor_name)",
}

var defaultOrder = []string{"lower(organization_name) ASC", "organization_id ASC"}

type pgRepo struct {
	q db.Querier
}

func NewPGRepository(q db.Querier) Repository {
	return &pgRepo{q: q}
}

func (r *pgRepo) Search(ctx context.Context, sorts []fhir.SortSpec, page pagination.Params) ([]*Affiliation, int, error) {
	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)").From(pairsFrom)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count affiliations: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("organization_id", "organization_name", "vendor_id", "vendor_name").From(pairsFrom)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	sb.Limit(page.Limit()).Offset(page.Offset())

	query, args := sb.Build()
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search affiliations: %w", err)
	}
	defer rows.Close()

	var affiliations []*Affiliation
	for rows.Next() {
		a, err := scanAffiliation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan affiliation: %w", err)
		}
		affiliations = append(affiliations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return affiliations, total, nil
}

// GetByOrganizationID resolves the affiliation for one organization. When the
// organization pairs with several vendors the first by vendor name wins, so
// the detail route stays deterministic.
func (r *pgRepo) GetByOrganizationID(ctx context.Context, orgID uuid.UUID) (*Affiliation, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("organization_id", "organization_name", "vendor_id", "vendor_name").From(pairsFrom)
	sb.Where(sb.Equal("organization_id", orgID))
	sb.OrderBy("lower(vendor_name) ASC").Limit(1)

	query, args := sb.Build()
	a, err := scanAffiliation(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load affiliation: %w", err)
	}
	return a, nil
}

type affiliationScanner interface {
	Scan(dest ...interface{}) error
}

func scanAffiliation(row affiliationScanner) (*Affiliation, error) {
	var (
		a    Affiliation
		name *string
	)
	if err := row.Scan(&a.OrganizationID, &name, &a.VendorID, &a.VendorName); err != nil {
		return nil, err
	}
	if name != nil {
		a.OrganizationName = *name
	}
	return &a, nil
}
