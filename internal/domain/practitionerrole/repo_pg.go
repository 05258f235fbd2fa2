package practitionerrole

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
	"github.com/npd/provider-directory/internal/platform/vocab"
	"github.com/npd/provider-directory/pkg/pagination"
)

// practitionerNameExpr resolves the practitioner's display name from their
// earliest name row, for the reference display.
const practitionerNameExpr = `(SELECT concat_ws(' ', n.first_name, n.last_name)
	FROM individual_to_name n
	WHERE n.individual_id = pr.individual_id
	ORDER BY n.start_date NULLS LAST LIMIT 1)`

// organizationNameExpr resolves the organization's primary display name.
const organizationNameExpr = `(SELECT n.name FROM organization_to_name n
	WHERE n.organization_id = pr.organization_id
	ORDER BY n.is_primary DESC, n.name LIMIT 1)`

var sortFields = map[string]string{
	"location_name": "lower(l.name)",
}

var defaultOrder = []string{"lower(l.name) ASC", "pr.id ASC"}

const baseColumns = `pr.id, pr.active, pr.provider_role_code, pr.specialty_id,
	pr.individual_id, p.npi, pr.organization_id, pr.location_id,
	l.name, l.latitude, l.longitude`

type pgRepo struct {
	q     db.Querier
	vocab *vocab.Set
}

func NewPGRepository(q db.Querier, v *vocab.Set) Repository {
	return &pgRepo{q: q, vocab: v}
}

func (f Filters) apply(sb *sqlbuilder.SelectBuilder) {
	if f.PractitionerName != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM individual_to_name n
			WHERE n.individual_id = pr.individual_id
			AND to_tsvector('simple', concat_ws(' ', n.first_name, n.middle_name, n.last_name))
				@@ plainto_tsquery('simple', %s))`, sb.Var(f.PractitionerName)))
	}
	if f.PractitionerGender != "" {
		applyPractitionerGender(sb, f.PractitionerGender)
	}
	if f.PractitionerType != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM provider_to_taxonomy t
			JOIN nucc ON nucc.code = t.nucc_code
			WHERE t.individual_id = pr.individual_id
			AND to_tsvector('simple', nucc.display_name) @@ plainto_tsquery('simple', %s))`, sb.Var(f.PractitionerType)))
	}
	if f.PractitionerIdentifier != "" {
		applyPractitionerIdentifier(sb, f.PractitionerIdentifier)
	}
	if f.OrganizationName != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_name n
			WHERE n.organization_id = pr.organization_id
			AND to_tsvector('simple', n.name) @@ plainto_tsquery('simple', %s))`, sb.Var(f.OrganizationName)))
	}
	if f.OrganizationType != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_taxonomy t
			WHERE t.organization_id = pr.organization_id
			AND t.nucc_code = %s)`, sb.Var(f.OrganizationType)))
	}
	if f.Active != "" {
		// Unparseable values leave the filter unapplied, matching the
		// lenient boolean handling of the other optional filters.
		if active, err := strconv.ParseBool(f.Active); err == nil {
			sb.Where(sb.Equal("pr.active", active))
		}
	}
	if f.Role != "" {
		sb.Where(fmt.Sprintf("lower(pr.provider_role_code) = lower(%s)", sb.Var(f.Role)))
	}
	if f.Specialty != "" {
		sb.Where(fmt.Sprintf("lower(pr.specialty_id) = lower(%s)", sb.Var(f.Specialty)))
	}
	if f.EndpointConnectionType != "" {
		sb.Where(endpointChainCond(sb, "e.endpoint_connection_type_id ILIKE "+sb.Var("%"+f.EndpointConnectionType+"%")))
	}
	if f.EndpointPayloadType != "" {
		sb.Where(endpointChainCond(sb, fmt.Sprintf(`EXISTS (SELECT 1 FROM endpoint_instance_to_payload ip
			JOIN payload_type pt ON pt.id = ip.payload_type_id
			WHERE ip.endpoint_instance_id = e.id AND pt.value ILIKE %s)`, sb.Var("%"+f.EndpointPayloadType+"%"))))
	}
	if f.EndpointOrganizationID != "" {
		applyEndpointOrganizationID(sb, f.EndpointOrganizationID)
	}
	if f.EndpointOrganizationName != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_name n
			WHERE n.organization_id = l.organization_id AND n.name = %s)`, sb.Var(f.EndpointOrganizationName)))
	}
	if f.LocationAddress != "" {
		sb.Where(locationSearchCond(sb, f.LocationAddress,
			"concat_ws(' ', l.delivery_line_1, l.delivery_line_2, l.city_name, l.state_abbreviation, l.zipcode)"))
	}
	if f.LocationCity != "" {
		sb.Where(locationSearchCond(sb, f.LocationCity, "l.city_name"))
	}
	if f.LocationState != "" {
		sb.Where(locationSearchCond(sb, f.LocationState, "l.state_abbreviation"))
	}
	if f.LocationZip != "" {
		sb.Where(locationSearchCond(sb, f.LocationZip, "l.zipcode"))
	}
}

// applyPractitionerGender filters only when the value maps to a storage
// code; unmapped values leave the result set unfiltered. This is looser than
// the Practitioner gender filter, which fails closed.
func applyPractitionerGender(sb *sqlbuilder.SelectBuilder, value string) {
	code, ok := fhir.GenderMap.ToInternal(value)
	if !ok {
		return
	}
	sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM individual i
		WHERE i.id = pr.individual_id AND i.gender = %s)`, sb.Var(code)))
}

// applyPractitionerIdentifier mirrors the Practitioner identifier policy,
// except the unscoped other-id match is a substring match.
func applyPractitionerIdentifier(sb *sqlbuilder.SelectBuilder, raw string) {
	system, value, hasSystem := fhir.ParseIdentifier(raw)

	npiCond := func() (string, bool) {
		npi, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", false
		}
		return sb.Equal("p.npi", npi), true
	}

	if hasSystem {
		if !equalsUpper(system, "NPI") {
			sb.Where("1 = 0")
			return
		}
		if cond, ok := npiCond(); ok {
			sb.Where(cond)
		} else {
			sb.Where("1 = 0")
		}
		return
	}

	conds := []string{fmt.Sprintf(`EXISTS (SELECT 1 FROM provider_to_other_id oi
		WHERE oi.individual_id = pr.individual_id AND oi.other_id ILIKE %s)`, sb.Var("%"+value+"%"))}
	if cond, ok := npiCond(); ok {
		conds = append(conds, cond)
	}
	sb.Where(sb.Or(conds...))
}

func applyEndpointOrganizationID(sb *sqlbuilder.SelectBuilder, raw string) {
	orgID, err := uuid.Parse(raw)
	if err != nil {
		sb.Where("1 = 0")
		return
	}
	sb.Where(sb.Equal("l.organization_id", orgID))
}

// endpointChainCond scopes the condition to endpoints attached to the
// role's location.
func endpointChainCond(sb *sqlbuilder.SelectBuilder, cond string) string {
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM location_to_endpoint_instance le
		JOIN endpoint_instance e ON e.id = le.endpoint_instance_id
		WHERE le.location_id = pr.location_id AND %s)`, cond)
}

func locationSearchCond(sb *sqlbuilder.SelectBuilder, value, expr string) string {
	return fmt.Sprintf(`to_tsvector('simple', %s) @@ plainto_tsquery('simple', %s)`, expr, sb.Var(value))
}

func equalsUpper(s, target string) bool {
	if len(s) != len(target) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != target[i] {
			return false
		}
	}
	return true
}

func applyBoundingBox(sb *sqlbuilder.SelectBuilder, near *fhir.NearFilter) {
	minLat, maxLat, minLon, maxLon := near.BoundingBox()
	sb.Where(
		"l.latitude IS NOT NULL",
		"l.longitude IS NOT NULL",
		sb.Between("l.latitude", minLat, maxLat),
		sb.Between("l.longitude", minLon, maxLon),
	)
}

func (r *pgRepo) Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Role, int, error) {
	if f.LocationNear != "" {
		near, err := fhir.ParseNear(f.LocationNear)
		if err != nil {
			// Fail closed on malformed proximity filters.
			return nil, 0, nil
		}
		return r.searchNear(ctx, f, near, sorts, page)
	}

	countSb := r.fromClause(sqlbuilder.PostgreSQL.NewSelectBuilder().Select("COUNT(*)"))
	f.apply(countSb)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count practitioner roles: %w", err)
	}

	sb := r.baseSelect(f, sorts)
	sb.Limit(page.Limit()).Offset(page.Offset())

	roles, err := r.queryRoles(ctx, sb)
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *pgRepo) searchNear(ctx context.Context, f Filters, near *fhir.NearFilter, sorts []fhir.SortSpec, page pagination.Params) ([]*Role, int, error) {
	sb := r.baseSelect(f, sorts)
	applyBoundingBox(sb, near)

	candidates, err := r.queryRoles(ctx, sb)
	if err != nil {
		return nil, 0, err
	}

	roles, total := pageNearMatches(candidates, near, page)
	return roles, total, nil
}

// pageNearMatches keeps the candidates whose location lies within the exact
// radius and applies paging in process.
func pageNearMatches(candidates []*Role, near *fhir.NearFilter, page pagination.Params) ([]*Role, int) {
	matches := make([]*Role, 0, len(candidates))
	for _, role := range candidates {
		if role.HasCoordinates() && near.Contains(*role.Latitude, *role.Longitude) {
			matches = append(matches, role)
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

func (r *pgRepo) fromClause(sb *sqlbuilder.SelectBuilder) *sqlbuilder.SelectBuilder {
	sb.From("provider_to_location pr")
	sb.Join("location l", "l.id = pr.location_id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "provider p", "p.individual_id = pr.individual_id")
	return sb
}

func (r *pgRepo) baseSelect(f Filters, sorts []fhir.SortSpec) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(baseColumns,
		practitionerNameExpr+" AS practitioner_name",
		organizationNameExpr+" AS organization_name")
	r.fromClause(sb)
	f.apply(sb)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	return sb
}

func (r *pgRepo) queryRoles(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]*Role, error) {
	query, args := sb.Build()
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search practitioner roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan practitioner role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.fillSpecialtyDisplays(ctx, roles)
	return roles, nil
}

// fillSpecialtyDisplays resolves taxonomy display names from the NUCC
// vocabulary; unknown codes keep an empty display.
func (r *pgRepo) fillSpecialtyDisplays(ctx context.Context, roles []*Role) {
	for _, role := range roles {
		if role.SpecialtyCode != "" {
			role.SpecialtyDisplay = r.vocab.Nucc.DisplayOr(ctx, role.SpecialtyCode, "")
		}
	}
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	query := fmt.Sprintf(`SELECT %s, %s AS practitioner_name, %s AS organization_name
		FROM provider_to_location pr
		JOIN location l ON l.id = pr.location_id
		LEFT JOIN provider p ON p.individual_id = pr.individual_id
		WHERE pr.id = $1`, baseColumns, practitionerNameExpr, organizationNameExpr)

	role, err := scanRoleRow(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load practitioner role: %w", err)
	}

	r.fillSpecialtyDisplays(ctx, []*Role{role})
	return role, nil
}

type roleScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoleRow(row roleScanner) (*Role, error) {
	var (
		role             Role
		roleCode         *string
		specialty        *string
		npi              *int64
		practitionerName *string
		organizationName *string
	)
	err := row.Scan(&role.ID, &role.Active, &roleCode, &specialty,
		&role.PractitionerID, &npi, &role.OrganizationID, &role.LocationID,
		&role.LocationName, &role.Latitude, &role.Longitude,
		&practitionerName, &organizationName)
	if err != nil {
		return nil, err
	}
	if roleCode != nil {
		role.RoleCode = *roleCode
	}
	if specialty != nil {
		role.SpecialtyCode = *specialty
	}
	if npi != nil {
		role.PractitionerNPI = *npi
	}
	if practitionerName != nil {
		role.PractitionerName = *practitionerName
	}
	if organizationName != nil {
		role.OrganizationName = *organizationName
	}
	return &role, nil
}
