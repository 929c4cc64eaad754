// Package search filters fields by a free-text keyword.
package search

import (
	"strings"

	"github.com/sakif/fieldfinder/internal/model"
)

// Normalize trims and lower-cases a keyword the way Fields compares it.
func Normalize(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Matches reports whether the field's name or address contains the keyword,
// ignoring letter case. An empty keyword matches nothing.
func Matches(f model.Field, keyword string) bool {
	kw := Normalize(keyword)
	if kw == "" {
		return false
	}
	return strings.Contains(strings.ToLower(f.Name), kw) ||
		strings.Contains(strings.ToLower(f.Address), kw)
}

// Fields returns the matching fields in their original order.
func Fields(fields []model.Field, keyword string) []model.Field {
	out := make([]model.Field, 0)
	if Normalize(keyword) == "" {
		return out
	}
	for _, f := range fields {
		if Matches(f, keyword) {
			out = append(out, f)
		}
	}
	return out
}
