package practitioner

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

// Sort name expressions pick the earliest-starting name row so ordering is
// deterministic across pages.
const (
	sortLastExpr = `(SELECT n.last_name FROM individual_to_name n
		WHERE n.individual_id = p.individual_id ORDER BY n.start_date NULLS LAST LIMIT 1)`
	sortFirstExpr = `(SELECT n.first_name FROM individual_to_name n
		WHERE n.individual_id = p.individual_id ORDER BY n.start_date NULLS LAST LIMIT 1)`
)

var sortFields = map[string]string{
	"name":   "sort_last",
	"family": "sort_last",
	"given":  "sort_first",
}

var defaultOrder = []string{"sort_last ASC", "sort_first ASC", "individual_id ASC"}

type pgRepo struct {
	q     db.Querier
	vocab *vocab.Set
}

func NewPGRepository(q db.Querier, v *vocab.Set) Repository {
	return &pgRepo{q: q, vocab: v}
}

func (f Filters) apply(sb *sqlbuilder.SelectBuilder) {
	if f.Identifier != "" {
		applyIdentifier(sb, f.Identifier)
	}
	if f.Name != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM individual_to_name n
			WHERE n.individual_id = p.individual_id
			AND to_tsvector('simple', concat_ws(' ', n.first_name, n.middle_name, n.last_name))
				@@ plainto_tsquery('simple', %s))`, sb.Var(f.Name)))
	}
	if f.Gender != "" {
		applyGender(sb, f.Gender)
	}
	if f.PractitionerType != "" {
		sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM provider_to_taxonomy t
			JOIN nucc ON nucc.code = t.nucc_code
			WHERE t.individual_id = p.individual_id
			AND to_tsvector('simple', nucc.display_name) @@ plainto_tsquery('simple', %s))`, sb.Var(f.PractitionerType)))
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

// applyIdentifier implements the system-scoping policy for practitioners: an
// explicit NPI system must be an exact integer match, any other explicit
// system fails closed, and an unscoped value is the union of the NPI and
// other-id lookups.
func applyIdentifier(sb *sqlbuilder.SelectBuilder, raw string) {
	system, value, hasSystem := fhir.ParseIdentifier(raw)

	npiCond := func() (string, bool) {
		npi, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", false
		}
		return sb.Equal("p.npi", npi), true
	}
	otherCond := func() string {
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM provider_to_other_id oi
			WHERE oi.individual_id = p.individual_id AND oi.other_id = %s)`, sb.Var(value))
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

	conds := []string{otherCond()}
	if cond, ok := npiCond(); ok {
		conds = append(conds, cond)
	}
	sb.Where(sb.Or(conds...))
}

// applyGender maps FHIR administrative-gender codes to the storage codes;
// unmapped values pass through verbatim and match no rows.
func applyGender(sb *sqlbuilder.SelectBuilder, value string) {
	if code, ok := fhir.GenderMap.ToInternal(value); ok {
		value = code
	}
	sb.Where(sb.Equal("i.gender", value))
}

func applyAddressUse(sb *sqlbuilder.SelectBuilder, value string) {
	useID, err := strconv.Atoi(fhir.AddressUseMap.InternalOrNoMatch(value))
	if err != nil {
		useID = -1
	}
	sb.Where(fmt.Sprintf(`EXISTS (SELECT 1 FROM individual_to_address a
		WHERE a.individual_id = p.individual_id AND a.address_use_id = %s)`, sb.Var(useID)))
}

func addressSearchCond(sb *sqlbuilder.SelectBuilder, value, expr string) string {
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM individual_to_address a
		WHERE a.individual_id = p.individual_id
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

func (r *pgRepo) Search(ctx context.Context, f Filters, sorts []fhir.SortSpec, page pagination.Params) ([]*Practitioner, int, error) {
	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)").From("provider p")
	countSb.Join("individual i", "i.id = p.individual_id")
	f.apply(countSb)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count practitioners: %w", err)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("p.individual_id", "p.npi", "p.enumeration_date", "p.deactivation_date",
		"lower("+sortLastExpr+") AS sort_last", "lower("+sortFirstExpr+") AS sort_first")
	sb.From("provider p")
	sb.Join("individual i", "i.id = p.individual_id")
	f.apply(sb)
	sb.OrderBy(fhir.OrderColumns(sorts, sortFields, defaultOrder)...)
	sb.Limit(page.Limit()).Offset(page.Offset())

	query, args := sb.Build()
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search practitioners: %w", err)
	}
	defer rows.Close()

	var practitioners []*Practitioner
	for rows.Next() {
		var (
			p                   Practitioner
			sortLast, sortFirst *string
		)
		if err := rows.Scan(&p.ID, &p.NPI, &p.EnumerationDate, &p.DeactivationDate, &sortLast, &sortFirst); err != nil {
			return nil, 0, fmt.Errorf("scan practitioner: %w", err)
		}
		practitioners = append(practitioners, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.prefetch(ctx, practitioners); err != nil {
		return nil, 0, err
	}
	return practitioners, total, nil
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return r.getOne(ctx, "p.individual_id = $1", id)
}

func (r *pgRepo) GetByNPI(ctx context.Context, npi int64) (*Practitioner, error) {
	return r.getOne(ctx, "p.npi = $1", npi)
}

func (r *pgRepo) getOne(ctx context.Context, cond string, arg interface{}) (*Practitioner, error) {
	query := `SELECT p.individual_id, p.npi, p.enumeration_date, p.deactivation_date
		FROM provider p WHERE ` + cond

	var p Practitioner
	err := r.q.QueryRow(ctx, query, arg).Scan(&p.ID, &p.NPI, &p.EnumerationDate, &p.DeactivationDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load practitioner: %w", err)
	}

	if err := r.prefetch(ctx, []*Practitioner{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// prefetch is the explicit fetch plan for a page of practitioners: one batch
// query per association instead of per-row lookups.
func (r *pgRepo) prefetch(ctx context.Context, practitioners []*Practitioner) error {
	if len(practitioners) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Practitioner, len(practitioners))
	ids := make([]uuid.UUID, len(practitioners))
	for i, p := range practitioners {
		byID[p.ID] = p
		ids[i] = p.ID
	}

	if err := r.loadNames(ctx, byID, ids); err != nil {
		return err
	}
	if err := r.loadPhones(ctx, byID, ids); err != nil {
		return err
	}
	if err := r.loadEmails(ctx, byID, ids); err != nil {
		return err
	}
	if err := r.loadAddresses(ctx, byID, ids); err != nil {
		return err
	}
	if err := r.loadOtherIDs(ctx, byID, ids); err != nil {
		return err
	}
	return r.loadTaxonomies(ctx, byID, ids)
}

func (r *pgRepo) loadNames(ctx context.Context, byID map[uuid.UUID]*Practitioner, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT individual_id, name_use_id, prefix, first_name,
		middle_name, last_name, suffix, start_date, end_date
		FROM individual_to_name WHERE individual_id = ANY($1)
		ORDER BY start_date NULLS LAST`, ids)
	if err != nil {
		return fmt.Errorf("load practitioner names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			indID uuid.UUID
			useID int
			n     Name
		)
		if err := rows.Scan(&indID, &useID, &n.Prefix, &n.First, &n.Middle, &n.Last, &n.Suffix, &n.StartDate, &n.EndDate); err != nil {
			return err
		}
		n.Use = r.vocab.NameUse.DisplayOr(ctx, strconv.Itoa(useID), "official")
		if p := byID[indID]; p != nil {
			p.Names = append(p.Names, n)
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadPhones(ctx context.Context, byID map[uuid.UUID]*Practitioner, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT individual_id, phone_use_id, phone_number, extension
		FROM individual_to_phone WHERE individual_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load practitioner phones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			indID uuid.UUID
			useID int
			ph    Phone
		)
		if err := rows.Scan(&indID, &useID, &ph.Number, &ph.Extension); err != nil {
			return err
		}
		ph.Use = r.vocab.PhoneUse.DisplayOr(ctx, strconv.Itoa(useID), "work")
		if p := byID[indID]; p != nil {
			p.Phones = append(p.Phones, ph)
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadEmails(ctx context.Context, byID map[uuid.UUID]*Practitioner, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT individual_id, email_address
		FROM individual_to_email WHERE individual_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load practitioner emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			indID uuid.UUID
			email string
		)
		if err := rows.Scan(&indID, &email); err != nil {
			return err
		}
		if p := byID[indID]; p != nil {
			p.Emails = append(p.Emails, email)
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadAddresses(ctx context.Context, byID map[uuid.UUID]*Practitioner, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT individual_id, address_id, address_use_id,
		delivery_line_1, delivery_line_2, city_name, state_abbreviation, zipcode
		FROM individual_to_address WHERE individual_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load practitioner addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			indID uuid.UUID
			useID int
			a     Address
		)
		if err := rows.Scan(&indID, &a.AddressID, &useID, &a.Line1, &a.Line2, &a.City, &a.State, &a.Zip); err != nil {
			return err
		}
		if use, ok := fhir.AddressUseMap.ToFHIR(strconv.Itoa(useID)); ok {
			a.Use = use
		}
		if p := byID[indID]; p != nil {
			p.Addresses = append(p.Addresses, a)
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadOtherIDs(ctx context.Context, byID map[uuid.UUID]*Practitioner, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT individual_id, other_id_type_id, other_id, issue_date, expiry_date
		FROM provider_to_other_id WHERE individual_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load practitioner other ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			indID uuid.UUID
			oid   OtherID
		)
		if err := rows.Scan(&indID, &oid.TypeCode, &oid.Value, &oid.IssueDate, &oid.ExpiryDate); err != nil {
			return err
		}
		oid.TypeDisplay = r.vocab.OtherIDType.DisplayOr(ctx, oid.TypeCode, oid.TypeCode)
		if p := byID[indID]; p != nil {
			p.OtherIDs = append(p.OtherIDs, oid)
		}
	}
	return rows.Err()
}

func (r *pgRepo) loadTaxonomies(ctx context.Context, byID map[uuid.UUID]*Practitioner, ids []uuid.UUID) error {
	rows, err := r.q.Query(ctx, `SELECT t.individual_id, t.nucc_code, nucc.display_name
		FROM provider_to_taxonomy t
		JOIN nucc ON nucc.code = t.nucc_code
		WHERE t.individual_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load practitioner taxonomies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			indID uuid.UUID
			t     Taxonomy
		)
		if err := rows.Scan(&indID, &t.Code, &t.DisplayName); err != nil {
			return err
		}
		if p := byID[indID]; p != nil {
			p.Taxonomies = append(p.Taxonomies, t)
		}
	}
	return rows.Err()
}
