// internal/expr/tokenize.go
package expr

import "regexp"

var identPattern = regexp.MustCompile(`\b[a-z]\w*`)

// reserved words of the expression grammar; never signal identifiers.
var reserved = map[string]bool{
	"and":   true,
	"or":    true,
	"not":   true,
	"true":  true,
	"false": true,
}

// Identifiers returns the distinct signal identifiers referenced by a trigger
// expression, in order of first appearance. Grammar keywords are excluded.
// The scan is purely lexical; it does not check that the expression parses.
func Identifiers(expression string) []string {
	var idents []string
	seen := make(map[string]bool)
	for _, tok := range identPattern.FindAllString(expression, -1) {
		if reserved[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		idents = append(idents, tok)
	}
	return idents
}
