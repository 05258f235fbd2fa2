package organization

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

// primaryNameExpr resolves the organization's primary display name inline so
// it can drive both sorting and stable pagination.
const primaryNameExpr = `(SELECT n.name FROM organization_to_name n
	WHERE n.organization_id = o.id ORDER BY n.is_primary DESC, n.name LIMIT 1)`

// sortFields whitelists the _sort parameter for Organization searches.
// primary_name is selected pre-lowercased so the output alias is usable in
// ORDER BY.
var sortFields = map[string]string{
	"name": "primary_name",
}

var defaultOrder = []string{"primary_name ASC", "id ASC"}

type pgRepo struct {
	q     db.Querier
	vocab *vocab.Set
}

func NewPGRepository(q db.Querier, v *vocab.Set) Repository {
	return &pgRepo{q: q, vocab: v}
}

// apply turns the populated filters into SQL conditions on sb. Each filter
// composes with AND; illegal values inside a filter fail closed with an
// always-false condition rather than erroring.
func (f Filters) apply(sb *sqlbuilder.SelectBuilder) {
	if f.Name != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_name n
			WHERE n.organization_id = o.id
			AND to_tsvector('simple', n.name) @@ plainto_tsquery('simple', %s))`, sb.Var(f.Name)))
	}
	if f.Identifier != "" {
		applyIdentifier(sb, f.Identifier)
	}
	if f.OrganizationType != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_taxonomy t
			JOIN nucc ON nucc.code = t.nucc_code
			WHERE t.organization_id = o.id
			AND to_tsvector('simple', nucc.display_name) @@ plainto_tsquery('simple', %s))`, sb.Var(f.OrganizationType)))
	}
	if f.Address != "" {
		sb.Where(addressSearchCond(sb, f.Address,
			"concat_ws(' ', a.delivery_line_1, a.delivery_line_2, a.city_name, a.state_abbreviation, a.zipcode)"))
	}
	if f.AddressCity != "" {
		sb.Where(addressSearchCond(sb, f.AddressCity, "a.city_name"))
	}
	if f.AddressState != "" {
		sb.Where(addressSearchCond(sb, f.AddressState, "a.state_abbreviation"))
	}
	if f.AddressPostal != "" {
		sb.Where(addressSearchCond(sb, f.AddressPostal, "a.zipcode"))
	}
	if f.AddressUse != "" {
		applyAddressUse(sb, f.AddressUse)
	}
}

// applyIdentifier implements the system-scoping policy: an explicit NPI
// system must be an exact integer match, an explicit EIN must be UUID-shaped,
// any other explicit system falls through to the other-id table, and an
// unscoped value is the union of all three.
func applyIdentifier(sb *sqlbuilder.SelectBuilder, raw string) {
	system, value, hasSystem := fhir.ParseIdentifier(raw)

	npiCond := func() (string, bool) {
		npi, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", false
		}
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM clinical_organization c
			WHERE c.organization_id = o.id AND c.npi = %s)`, sb.Var(npi)), true
	}
	einCond := func() (string, bool) {
		einID, err := uuid.Parse(value)
		if err != nil {
			return "", false
		}
		return sb.Equal("o.ein_id", einID), true
	}
	otherCond := func() string {
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_other_id oi
			WHERE oi.organization_id = o.id AND oi.other_id = %s)`, sb.Var(value))
	}

	if hasSystem {
		switch {
		case equalsUpper(system, "NPI"):
			if cond, ok := npiCond(); ok {
				sb.Where(cond)
			} else {
				sb.Where("1 = 0")
			}
		case equalsUpper(system, "EIN"):
			if cond, ok := einCond(); ok {
				sb.Where(cond)
			} else {
				sb.Where("1 = 0")
			}
		default:
			sb.Where(otherCond())
		}
		return
	}

	conds := []string{otherCond()}
	if cond, ok := npiCond(); ok {
		conds = append(conds, cond)
	}
	if cond, ok := einCond(); ok {
		conds = append(conds, cond)
	}
	sb.Where(sb.Or(conds...))
}

func applyAddressUse(sb *sqlbuilder.SelectBuilder, value string) {
	useID, err := strconv.Atoi(fhir.AddressUseMap.InternalOrNoMatch(value))
	if err != nil {
		useID = -1
	}
	sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_address a
		WHERE a.organization_id = o.id AND a.address_use_id = %s)`, sb.Var(useID)))
}

func addressSearchCond(sb *sqlbuilder.SelectBuilder, value, expr string) string {
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM organization_to_address a
		WHERE a.organization_id = o.id
		AND to_tsvector('simple', %s) @@ plainto_tsquery('simple', %s))`, expr, sb.Var(value))
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

func (r *pgRepo) Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Organization, int, error) {
	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)").From("organization o")
	f.apply(countSb)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count organizations: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("o.id", "o.parent_id", "o.ein_id", "o.authorized_official_id",
		"lower("+primaryNameExpr+") AS primary_name")
	sb.From("organization o")
	f.apply(sb)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	sb.Limit(page.Limit()).Offset(page.Offset())

	query, args := sb.Build()
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	officialIDs := map[uuid.UUID]uuid.UUID{}
	for rows.Next() {
		var (
			o          Organization
			officialID *uuid.UUID
			primary    *string
		)
		if err := rows.Scan(&o.ID, &o.ParentID, &o.EINID, &officialID, &primary); err != nil {
			return nil, 0, fmt.Errorf("scan organization: %w", err)
		}
		if officialID != nil {
			officialIDs[o.ID] = *officialID
		}
		orgs = append(orgs, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.prefetch(ctx, orgs, officialIDs); err != nil {
		return nil, 0, err
	}
	return orgs, total, nil
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return r.getOne(ctx, "o.id = $1", id)
}

func (r *pgRepo) GetByNPI(ctx context.Context, npi int64) (*Organization, error) {
	return r.getOne(ctx,
		"o.id = (SELECT c.organization_id FROM clinical_organization c WHERE c.npi = $1)", npi)
}

func (r *pgRepo) getOne(ctx context.Context, cond string, arg interface{}) (*Organization, error) {
	query := `SELECT o.id, o.parent_id, o.ein_id, o.authorized_official_id
		FROM organization o WHERE ` + cond

	var (
		o          Organization
		officialID *uuid.UUID
	)
	err := r.q.QueryRow(ctx, query, arg).Scan(&o.ID, &o.ParentID, &o.EINID, &officialID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}

	officialIDs := map[uuid.UUID]uuid.UUID{}
	if officialID != nil {
		officialIDs[o.ID] = *officialID
	}
	if err := r.prefetch(ctx, []*Organization{&o}, officialIDs); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pgRepo) GetVendorByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var o Organization
	o.Kind = KindVendor
	err := r.q.QueryRow(ctx,
		`SELECT v.id, v.name FROM ehr_vendor v WHERE v.id = $1`, id).
		Scan(&o.ID, &o.VendorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ehr vendor: %w", err)
	}
	return &o, nil
}

// prefetch is the explicit fetch plan for a page of organizations: one batch
// query per association instead of per-row lookups.
func (r *pgRepo) prefetch(ctx context.Context, orgs []*Organization, officialIDs map[uuid.UUID]uuid.UUID) error {
	if len(orgs) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Organization, len(orgs))
	ids := make([]uuid.UUID, len(orgs))
	for i, o := range orgs {
		byID[o.ID] = o
		ids[i] = o.ID
	}

	if err := r.loadNames(ctx, byID, ids); err != nil {
		return err
	}
	if err := r.loadAddresses(ctx, byID, ids); err != nil {
		return err
	}
	if err := r.loadClinical(ctx, byID, ids); err != nil {
		return err
	}
	if err := r.loadOtherIDs(ctx, byID, ids); err != nil {
		return err
	}
	if err := r.loadTaxonomies(ctx, byID, ids); err != nil {
		return err
	}
	return r.loadOfficials(ctx, byID, officialIDs)
}

func (r *pgRepo) loadNames(ctx context.Context, byID map[uuid.UUID]*Organization, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT organization_id, name, is_primary
		FROM organization_to_name WHERE organization_id = ANY($1)
		ORDER BY is_primary DESC, name`, ids)
	if err != nil {
		return fmt.Errorf("load organization names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orgID uuid.UUID
			n     Name
		)
		if err := rows.Scan(&orgID, &n.Value, &n.IsPrimary); err != nil {
			return err
		}
		if o := byID[orgID]; o != nil {
			o.Names = append(o.Names, n)
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadAddresses(ctx context.Context, byID map[uuid.UUID]*Organization, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT organization_id, address_id, address_use_id,
		delivery_line_1, delivery_line_2, city_name, state_abbreviation, zipcode
		FROM organization_to_address WHERE organization_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load organization addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orgID uuid.UUID
			useID int
			a     Address
		)
		if err := rows.Scan(&orgID, &a.AddressID, &useID, &a.Line1, &a.Line2, &a.City, &a.State, &a.Zip); err != nil {
			return err
		}
		a.Use = r.addressUse(useID)
		if o := byID[orgID]; o != nil {
			o.Addresses = append(o.Addresses, a)
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadClinical(ctx context.Context, byID map[uuid.UUID]*Organization, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT organization_id, npi, enumeration_date, deactivation_date
		FROM clinical_organization WHERE organization_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load clinical organizations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orgID uuid.UUID
			c     ClinicalDetail
		)
		if err := rows.Scan(&orgID, &c.NPI, &c.EnumerationDate, &c.DeactivationDate); err != nil {
			return err
		}
		if o := byID[orgID]; o != nil {
			o.Clinical = &c
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadOtherIDs(ctx context.Context, byID map[uuid.UUID]*Organization, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT organization_id, other_id_type_id, other_id, issue_date, expiry_date
		FROM organization_to_other_id WHERE organization_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load organization other ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orgID uuid.UUID
			oid   OtherID
		)
		if err := rows.Scan(&orgID, &oid.TypeCode, &oid.Value, &oid.IssueDate, &oid.ExpiryDate); err != nil {
			return err
		}
		oid.TypeDisplay = r.vocab.OtherIDType.DisplayOr(ctx, oid.TypeCode, oid.TypeCode)
		o := byID[orgID]
		if o == nil {
			continue
		}
		if o.Clinical == nil {
			o.Clinical = &ClinicalDetail{}
		}
		o.Clinical.OtherIDs = append(o.Clinical.OtherIDs, oid)
	}
	return rows.Err()
}

func (r *pgRepo) loadTaxonomies(ctx context.Context, byID map[uuid.UUID]*Organization, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT t.organization_id, t.nucc_code, nucc.display_name
		FROM organization_to_taxonomy t
		JOIN nucc ON nucc.code = t.nucc_code
		WHERE t.organization_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load organization taxonomies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orgID uuid.UUID
			t     Taxonomy
		)
		if err := rows.Scan(&orgID, &t.Code, &t.DisplayName); err != nil {
			return err
		}
		o := byID[orgID]
		if o == nil {
			continue
		}
		if o.Clinical == nil {
			o.Clinical = &ClinicalDetail{}
		}
		o.Clinical.Taxonomies = append(o.Clinical.Taxonomies, t)
	}
	return rows.Err()
}

func (r *pgRepo) loadOfficials(ctx context.Context, byID map[uuid.UUID]*Organization, officialIDs map[uuid.UUID]uuid.UUID) error {
	if len(officialIDs) == 0 {
		return nil
	}

	individualIDs := make([]uuid.UUID, 0, len(officialIDs))
	officialByIndividual := map[uuid.UUID][]*Official{}
	for orgID, indID := range officialIDs {
		o := byID[orgID]
		if o == nil {
			continue
		}
		o.Official = &Official{}
		if len(officialByIndividual[indID]) == 0 {
			individualIDs = append(individualIDs, indID)
		}
		officialByIndividual[indID] = append(officialByIndividual[indID], o.Official)
	}

	rows, err := r.q.Query(ctx, `SELECT individual_id, name_use_id, prefix, first_name,
		middle_name, last_name, suffix, start_date, end_date
		FROM individual_to_name WHERE individual_id = ANY($1)
		ORDER BY start_date NULLS LAST`, individualIDs)
	if err != nil {
		return fmt.Errorf("load official names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			indID uuid.UUID
			useID int
			n     PersonName
		)
		if err := rows.Scan(&indID, &useID, &n.Prefix, &n.First, &n.Middle, &n.Last, &n.Suffix, &n.StartDate, &n.EndDate); err != nil {
			return err
		}
		n.Use = r.nameUse(ctx, useID)
		for _, off := range officialByIndividual[indID] {
			off.Names = append(off.Names, n)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	phoneRows, err := r.q.Query(ctx, `SELECT individual_id, phone_use_id, phone_number, extension
		FROM individual_to_phone WHERE individual_id = ANY($1)`, individualIDs)
	if err != nil {
		return fmt.Errorf("load official phones: %w", err)
	}
	defer phoneRows.Close()
	for phoneRows.Next() {
		var (
			indID uuid.UUID
			useID int
			p     Phone
		)
		if err := phoneRows.Scan(&indID, &useID, &p.Number, &p.Extension); err != nil {
			return err
		}
		p.Use = r.phoneUse(ctx, useID)
		for _, off := range officialByIndividual[indID] {
			off.Phones = append(off.Phones, p)
		}
	}
	if err := phoneRows.Err(); err != nil {
		return err
	}

	emailRows, err := r.q.Query(ctx, `SELECT individual_id, email_address
		FROM individual_to_email WHERE individual_id = ANY($1)`, individualIDs)
	if err != nil {
		return fmt.Errorf("load official emails: %w", err)
	}
	defer emailRows.Close()
	for emailRows.Next() {
		var (
			indID uuid.UUID
			email string
		)
		if err := emailRows.Scan(&indID, &email); err != nil {
			return err
		}
		for _, off := range officialByIndividual[indID] {
			off.Emails = append(off.Emails, email)
		}
	}
	return emailRows.Err()
}

func (r *pgRepo) addressUse(useID int) string {
	if use, ok := fhir.AddressUseMap.ToFHIR(strconv.Itoa(useID)); ok {
		return use
	}
	return ""
}

func (r *pgRepo) nameUse(ctx context.Context, useID int) string {
	return r.vocab.NameUse.DisplayOr(ctx, strconv.Itoa(useID), "official")
}

func (r *pgRepo) phoneUse(ctx context.Context, useID int) string {
	return r.vocab.PhoneUse.DisplayOr(ctx, strconv.Itoa(useID), "work")
}
