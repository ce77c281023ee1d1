package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a person or service name for comparison: Unicode NFC,
// trimmed, inner whitespace collapsed, lower case.
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// SameName reports whether a and b name the same person.
func SameName(a, b string) bool {
	na := NormalizeName(a)
	return na != "" && na == NormalizeName(b)
}

// ServiceString composes the service list of a quote or appointment into the
// single service string carried by jobs and invoices.
func ServiceString(services []string) string {
	return strings.Join(services, ", ")
}

// IsAssigned reports whether crew names an actual crew member.
func IsAssigned(crew string) bool {
	c := strings.TrimSpace(crew)
	return c != "" && c != Unassigned
}

// CrewOrUnassigned returns crew, or Unassigned when it names nobody.
func CrewOrUnassigned(crew string) string {
	if IsAssigned(crew) {
		return strings.TrimSpace(crew)
	}
	return Unassigned
}
