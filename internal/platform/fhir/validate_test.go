package fhir

import (
	"context"
	"errors"
	"testing"
)

type staticLookup map[string]string

func (s staticLookup) Lookup(_ context.Context, code string) (string, bool, error) {
	display, ok := s[code]
	return display, ok, nil
}

type failingLookup struct{}

func (failingLookup) Lookup(context.Context, string) (string, bool, error) {
	return "", false, errors.New("vocabulary unavailable")
}

func TestValidateCodeKnownCode(t *testing.T) {
	lookup := staticLookup{"207Q00000X": "Family Medicine"}

	if err := ValidateCode(context.Background(), lookup, "nucc", "207Q00000X"); err != nil {
		t.Fatalf("ValidateCode = %v, want nil", err)
	}
}

func TestValidateCodeUnknownCodeCarriesPath(t *testing.T) {
	err := ValidateCode(context.Background(), staticLookup{}, "nucc", "bogus", "qualification", "0", "code")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Path[0] != "qualification" {
		t.Errorf("path = %v", verr.Path)
	}
}

func TestValidateCodeLookupFailure(t *testing.T) {
	err := ValidateCode(context.Background(), failingLookup{}, "nucc", "207Q00000X")

	if err == nil {
		t.Fatal("expected error when the vocabulary is unreachable")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Fatalf("lookup failures are not validation errors: %v", err)
	}
}
