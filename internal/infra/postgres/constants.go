package postgres

import "strings"

const sortOrderASC = "ASC"

// Sortable profile columns. Anything else falls back to full_name.
const (
	sortFieldEmail     = "email"
	sortFieldFullName  = "full_name"
	sortFieldCreatedAt = "created_at"
)

// escapeLikePattern neutralizes LIKE wildcards in user-supplied search
// terms so they match literally.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// wrapLikePattern turns a search term into a %term% substring pattern.
func wrapLikePattern(s string) string {
	return "%" + escapeLikePattern(s) + "%"
}
