package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns an ILIKE pattern matching s anywhere in the column.
// LIKE metacharacters in s match literally.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
