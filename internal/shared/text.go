package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold trims and case-folds user supplied identifiers such as role names,
// statuses and sort keys so that "Admin " and "admin" compare equal.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// cases.Caser keeps state and must not be shared across goroutines.
	return cases.Fold().String(s)
}
