package endpoint

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

var sortFields = map[string]string{
	"name": "lower(e.name)",
}

var defaultOrder = []string{"lower(e.name) ASC", "e.id ASC"}

type pgRepo struct {
	q db.Querier
}

func NewPGRepository(q db.Querier) Repository {
	return &pgRepo{q: q}
}

func (f Filters) apply(sb *sqlbuilder.SelectBuilder) {
	if f.Name != "" {
		sb.Where(sb.ILike("e.name", "%"+f.Name+"%"))
	}
	if f.ConnectionType != "" {
		sb.Where(sb.ILike("e.endpoint_connection_type_id", "%"+f.ConnectionType+"%"))
	}
	if f.PayloadType != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM endpoint_instance_to_payload ip
			WHERE ip.endpoint_instance_id = e.id
			AND ip.payload_type_id ILIKE %s)`, sb.Var("%"+f.PayloadType+"%")))
	}
	if f.OrganizationName != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM location_to_endpoint_instance le
			JOIN location l ON l.id = le.location_id
			JOIN organization_to_name n ON n.organization_id = l.organization_id
			WHERE le.endpoint_instance_id = e.id AND n.name = %s)`, sb.Var(f.OrganizationName)))
	}
	if f.OrganizationID != "" {
		applyOrganizationID(sb, f.OrganizationID)
	}
}

// applyOrganizationID scopes endpoints to one organization through the
// location join chain. A non-UUID value fails closed.
func applyOrganizationID(sb *sqlbuilder.SelectBuilder, raw string) {
	orgID, err := uuid.Parse(raw)
	if err != nil {
		sb.Where("1 = 0")
		return
	}
	sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM location_to_endpoint_instance le
		JOIN location l ON l.id = le.location_id
		WHERE le.endpoint_instance_id = e.id AND l.organization_id = %s)`, sb.Var(orgID)))
}

func (r *pgRepo) Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Endpoint, int, error) {
	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)").From("endpoint_instance e")
	f.apply(countSb)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count endpoints: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("e.id", "e.name", "e.address", "e.environment_type_id", "e.ehr_vendor_id",
		"e.endpoint_connection_type_id", "ct.display").From("endpoint_instance e")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "endpoint_connection_type ct",
		"ct.id = e.endpoint_connection_type_id")
	f.apply(sb)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	sb.Limit(page.Limit()).Offset(page.Offset())

	query, args := sb.Build()
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, 0, err
		}
		endpoints = append(endpoints, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadPayloads(ctx, endpoints); err != nil {
		return nil, 0, err
	}
	return endpoints, total, nil
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*Endpoint, error) {
	row := r.q.QueryRow(ctx, `SELECT e.id, e.name, e.address, e.environment_type_id,
		e.ehr_vendor_id, e.endpoint_connection_type_id, ct.display
		FROM endpoint_instance e
		LEFT JOIN endpoint_connection_type ct ON ct.id = e.endpoint_connection_type_id
		WHERE e.id = $1`, id)

	e, err := scanEndpointRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load endpoint: %w", err)
	}

	if err := r.loadPayloads(ctx, []*Endpoint{e}); err != nil {
		return nil, err
	}
	return e, nil
}

type endpointScanner interface {
	Scan(dest ...interface{}) error
}

func scanEndpoint(rows pgx.Rows) (*Endpoint, error) {
	e, err := scanEndpointRow(rows)
	if err != nil {
		return nil, fmt.Errorf("scan endpoint: %w", err)
	}
	return e, nil
}

func scanEndpointRow(row endpointScanner) (*Endpoint, error) {
	var (
		e              Endpoint
		connectionCode *string
		display        *string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Address, &e.Environment, &e.VendorID,
		&connectionCode, &display)
	if err != nil {
		return nil, err
	}
	if connectionCode != nil {
		e.ConnectionCode = *connectionCode
	}
	if display != nil {
		e.ConnectionDisplay = *display
	}
	return &e, nil
}

func (r *pgRepo) loadPayloads(ctx context.Context, endpoints []*Endpoint) error {
	if len(endpoints) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Endpoint, len(endpoints))
	ids := make([]uuid.UUID, len(endpoints))
	for i, e := range endpoints {
		byID[e.ID] = e
		ids[i] = e.ID
	}

	rows, err := r.q.Query(ctx, `SELECT ip.endpoint_instance_id, ip.payload_type_id, pt.value
		FROM endpoint_instance_to_payload ip
		JOIN payload_type pt ON pt.id = ip.payload_type_id
		WHERE ip.endpoint_instance_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load endpoint payloads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			endpointID uuid.UUID
			p          Payload
		)
		if err := rows.Scan(&endpointID, &p.Code, &p.Value); err != nil {
			return err
		}
		if e := byID[endpointID]; e != nil {
			e.Payloads = append(e.Payloads, p)
		}
	}
	return rows.Err()
}
