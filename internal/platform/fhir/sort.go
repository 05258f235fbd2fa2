package fhir

import "strings"

// SortSpec represents a single _sort directive.
type SortSpec struct {
	Field      string
	Descending bool
}

// ParseSort parses the _sort query parameter value. Format: "-name,id" means
// name DESC, id ASC. A leading "-" indicates descending order.
func ParseSort(sortParam string) []SortSpec {
	if sortParam == "" {
		return nil
	}

	parts := strings.Split(sortParam, ",")
	specs := make([]SortSpec, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		spec := SortSpec{}
		if strings.HasPrefix(part, "-") {
			spec.Descending = true
			spec.Field = part[1:]
		} else {
			spec.Field = part
		}

		if spec.Field != "" {
			specs = append(specs, spec)
		}
	}

	return specs
}

// OrderColumns turns sort specs into ORDER BY expressions using a whitelist
// mapping of sort field names to SQL columns. Fields not on the whitelist are
// silently dropped. The resource's default order is appended as the final
// keys so that equal primary keys still paginate stably across pages; default
// columns already selected by the caller are not duplicated.
func OrderColumns(specs []SortSpec, fieldMap map[string]string, defaultOrder []string) []string {
	var cols []string
	seen := map[string]bool{}

	for _, spec := range specs {
		col, ok := fieldMap[spec.Field]
		if !ok {
			continue
		}
		if seen[col] {
			continue
		}
		seen[col] = true

		if spec.Descending {
			cols = append(cols, col+" DESC")
		} else {
			cols = append(cols, col+" ASC")
		}
	}

	for _, expr := range defaultOrder {
		col := strings.TrimSuffix(strings.TrimSuffix(expr, " DESC"), " ASC")
		if seen[col] {
			continue
		}
		seen[col] = true
		cols = append(cols, expr)
	}

	return cols
}
