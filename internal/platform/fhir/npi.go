package fhir

import (
	"fmt"
	"strings"
)

// ValidationError is a structured validation failure carrying the path of the
// offending field, used by the payload validation layer rather than the read
// query path.
type ValidationError struct {
	Path []string
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", strings.Join(e.Path, "."), e.Msg)
}

// NewValidationError builds a ValidationError for the given field path.
func NewValidationError(msg string, path ...string) *ValidationError {
	return &ValidationError{Path: path, Msg: msg}
}

// IsNPIShaped reports whether a string looks like an NPI: exactly ten digits.
// Used for path-parameter shape checks; it does not run the checksum.
func IsNPIShaped(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// ValidateNPI checks an NPI value for correct format and checksum. The
// checksum is the Luhn algorithm with a constant 24 added, accounting for the
// 80840 prefix defined for card-issuer NPIs.
func ValidateNPI(value string, path ...string) error {
	digits := make([]int, 0, len(value))
	for _, ch := range value {
		if ch >= '0' && ch <= '9' {
			digits = append(digits, int(ch-'0'))
		}
	}

	if len(digits) != 10 || digits[0] == 0 {
		return NewValidationError("npi value is not a valid 10-digit number", path...)
	}

	total := 24
	for i, d := range digits {
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		total += d
	}
	if total%10 != 0 {
		return NewValidationError("npi value fails the check-digit (luhn) validation", path...)
	}
	return nil
}
