package fhir

import "strings"

// ParseIdentifier splits an identifier search value of the form "value" or
// "system|value" into its parts. Only the first pipe delimits: "S|V|W" yields
// system "S" and value "V|W". It never fails on malformed input; the caller
// decides whether the system is recognized.
func ParseIdentifier(raw string) (system, value string, hasSystem bool) {
	if i := strings.Index(raw, "|"); i >= 0 {
		return raw[:i], raw[i+1:], true
	}
	return "", raw, false
}
