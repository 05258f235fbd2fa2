package fhir

import (
	"context"
	"fmt"
)

// CodeLookup resolves a code to its display name. Implemented by the vocab
// cache for NUCC taxonomy and other reference code systems.
type CodeLookup interface {
	Lookup(ctx context.Context, code string) (string, bool, error)
}

// ValidateCode checks that a code exists in the given code system. Failures
// carry the field path of the offending element, matching the shape of NPI
// validation errors.
func ValidateCode(ctx context.Context, lookup CodeLookup, system, code string, path ...string) error {
	_, ok, err := lookup.Lookup(ctx, code)
	if err != nil {
		return fmt.Errorf("lookup %s code %q: %w", system, code, err)
	}
	if !ok {
		return NewValidationError(fmt.Sprintf("code %q is not a valid %s code", code, system), path...)
	}
	return nil
}
