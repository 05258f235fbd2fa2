package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/npd/provider-directory/internal/platform/db"
	"github.com/npd/provider-directory/internal/platform/fhir"
	"github.com/npd/provider-directory/pkg/pagination"
)

// addressUseExpr resolves the inherited address use: the use id of the
// owning organization's address row sharing the location's address id.
const addressUseExpr = `(SELECT a.address_use_id FROM organization_to_address a
	WHERE a.organization_id = l.organization_id AND a.address_id = l.address_id LIMIT 1)`

var sortFields = map[string]string{
	"name": "lower(l.name)",
}

var defaultOrder = []string{"lower(l.name) ASC", "l.id ASC"}

const baseColumns = `l.id, l.name, l.active, l.organization_id, l.address_id,
	l.delivery_line_1, l.delivery_line_2, l.city_name, l.state_abbreviation, l.zipcode,
	l.latitude, l.longitude`

type pgRepo struct {
	q db.Querier
}

func NewPGRepository(q db.Querier) Repository {
	return &pgRepo{q: q}
}

func (f Filters) apply(sb *sqlbuilder.SelectBuilder) {
	if f.Name != "" {
		sb.Where(sb.Equal("l.name", f.Name))
	}
	if f.OrganizationType != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_taxonomy t
			JOIN nucc ON nucc.code = t.nucc_code
			WHERE t.organization_id = l.organization_id
			AND to_tsvector('simple', nucc.display_name) @@ plainto_tsquery('simple', %s))`, sb.Var(f.OrganizationType)))
	}
	if f.Address != "" {
		sb.Where(addressSearchCond(sb, f.Address,
			"concat_ws(' ', l.delivery_line_1, l.delivery_line_2, l.city_name, l.state_abbreviation, l.zipcode)"))
	}
	if f.AddressCity != "" {
		sb.Where(addressSearchCond(sb, f.AddressCity, "l.city_name"))
	}
	if f.AddressState != "" {
		sb.Where(addressSearchCond(sb, f.AddressState, "l.state_abbreviation"))
	}
	if f.AddressPostal != "" {
		sb.Where(addressSearchCond(sb, f.AddressPostal, "l.zipcode"))
	}
	if f.AddressUse != "" {
		applyAddressUse(sb, f.AddressUse)
	}
}

// applyAddressUse matches the inherited use: the owning organization's
// address row with the location's address id must carry the requested use.
func applyAddressUse(sb *sqlbuilder.SelectBuilder, value string) {
	useID, err := strconv.Atoi(fhir.AddressUseMap.InternalOrNoMatch(value))
	if err != nil {
		useID = -1
	}
	sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_address a
		WHERE a.organization_id = l.organization_id
		AND a.address_id = l.address_id
		AND a.address_use_id = %s)`, sb.Var(useID)))
}

// applyBoundingBox is the coarse index-friendly prefilter for proximity
// searches; survivors still go through the exact distance check.
func applyBoundingBox(sb *sqlbuilder.SelectBuilder, near *fhir.NearFilter) {
	minLat, maxLat, minLon, maxLon := near.BoundingBox()
	sb.Where(
		"l.latitude IS NOT NULL",
		"l.longitude IS NOT NULL",
		sb.Between("l.latitude", minLat, maxLat),
		sb.Between("l.longitude", minLon, maxLon),
	)
}

func addressSearchCond(sb *sqlbuilder.SelectBuilder, value, expr string) string {
	return fmt.Sprintf(`to_tsvector('simple', %s) @@ plainto_tsquery('simple', %s)`, expr, sb.Var(value))
}

func (r *pgRepo) Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Location, int, error) {
	if f.Near != "" {
		near, err := fhir.ParseNear(f.Near)
		if err != nil {
			// Fail closed: a malformed proximity filter returns nothing
			// rather than the unfiltered table.
			return nil, 0, nil
		}
		return r.searchNear(ctx, f, near, sorts, page)
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)").From("location l")
	f.apply(countSb)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count locations: %w", err)
	}

	sb := r.baseSelect(f, sorts)
	sb.Limit(page.Limit()).Offset(page.Offset())

	locations, err := r.queryLocations(ctx, sb)
	if err != nil {
		return nil, 0, err
	}
	return locations, total, nil
}

// searchNear runs the two-phase proximity search: the bounding box restricts
// the SQL scan, then the exact geodesic check trims the survivors before
// paging in process.
func (r *pgRepo) searchNear(ctx context.Context, f Filters, near *fhir.NearFilter, sorts []fhir.SortSpec, page pagination.Params) ([]*Location, int, error) {
	sb := r.baseSelect(f, sorts)
	applyBoundingBox(sb, near)

	candidates, err := r.queryLocations(ctx, sb)
	if err != nil {
		return nil, 0, err
	}

	matches, total := pageNearMatches(candidates, near, page)
	return matches, total, nil
}

// pageNearMatches keeps the candidates within the exact radius and applies
// paging in process; SQL limit/offset cannot be used because the bounding
// box over-selects.
func pageNearMatches(candidates []*Location, near *fhir.NearFilter, page pagination.Params) ([]*Location, int) {
	matches := make([]*Location, 0, len(candidates))
	for _, l := range candidates {
		if l.HasCoordinates() && near.Contains(*l.Latitude, *l.Longitude) {
			matches = append(matches, l)
		}
	}

	total := len(matches)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit()
	if end > total {
		end = total
	}
	return matches[start:end], total
}

func (r *pgRepo) baseSelect(f Filters, sorts []fhir.SortSpec) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(baseColumns, addressUseExpr+" AS address_use_id")
	sb.From("location l")
	f.apply(sb)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	return sb
}

func (r *pgRepo) queryLocations(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]*Location, error) {
	query, args := sb.Build()
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search locations: %w", err)
	}
	defer rows.Close()

	var locations []*Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	query := fmt.Sprintf(`SELECT %s, %s AS address_use_id FROM location l WHERE l.id = $1`,
		baseColumns, addressUseExpr)

	row := r.q.QueryRow(ctx, query, id)
	l, err := scanLocationRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	return l, nil
}

type locationScanner interface {
	Scan(dest ...interface{}) error
}

func scanLocation(rows pgx.Rows) (*Location, error) {
	l, err := scanLocationRow(rows)
	if err != nil {
		return nil, fmt.Errorf("scan location: %w", err)
	}
	return l, nil
}

func scanLocationRow(row locationScanner) (*Location, error) {
	var (
		l     Location
		useID *int
	)
	err := row.Scan(&l.ID, &l.Name, &l.Active, &l.OrganizationID, &l.AddressID,
		&l.Line1, &l.Line2, &l.City, &l.State, &l.Zip,
		&l.Latitude, &l.Longitude, &useID)
	if err != nil {
		return nil, err
	}
	if useID != nil {
		if use, ok := fhir.AddressUseMap.ToFHIR(strconv.Itoa(*useID)); ok {
			l.AddressUse = use
		}
	}
	return &l, nil
}
