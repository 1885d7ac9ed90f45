package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SnakeCase converts a column name to lower snake_case: camelCase word
// boundaries and separators (space, '-', '.') become a single '_', accents
// are stripped and any other rune is dropped.
//
//	firstName     -> first_name
//	itemInSession -> item_in_session
//	userID        -> user_id
//	Année-Sortie  -> annee_sortie
func SnakeCase(s string) string {
	// Decompose, remove nonspacing marks, recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	plain, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		plain = strings.TrimSpace(s)
	}
	rs := []rune(plain)

	var b strings.Builder
	sep := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}
	for i, r := range rs {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				prev := rs[i-1]
				nextLower := i+1 < len(rs) && rs[i+1] >= 'a' && rs[i+1] <= 'z'
				if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') ||
					(prev >= 'A' && prev <= 'Z' && nextLower) {
					sep()
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '_' || r == ' ' || r == '-' || r == '.':
			sep()
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}

// RenameMap returns from -> SnakeCase(from) for every name that changes.
func RenameMap(names []string) map[string]string {
	m := make(map[string]string)
	for _, n := range names {
		if s := SnakeCase(n); s != n {
			m[n] = s
		}
	}
	return m
}
