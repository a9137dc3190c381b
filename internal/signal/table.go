// internal/signal/table.go
package signal

import (
	"regexp"
	"strings"
)

// Signals travel on the bus under dotted names ("env.temperature") but appear
// in trigger expressions as underscore identifiers ("env_temperature"). The
// table owns both forms: the identifier→dotted mapping is built once, when an
// identifier is seeded, and reused everywhere instead of re-deriving it by
// string replacement at each use site.

// Table holds the most recently observed value for each signal identifier.
// It is written only by the scheduling loop; no locking.
type Table struct {
	values map[string]float64
	dotted map[string]string // identifier -> dotted bus name
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		values: make(map[string]float64),
		dotted: make(map[string]string),
	}
}

// Seed registers an identifier with a zero value and returns the dotted bus
// name to subscribe to. Seeding every identifier of the trigger expression
// before any message arrives guarantees evaluation never sees a missing key.
func (t *Table) Seed(ident string) string {
	name := Dotted(ident)
	t.values[ident] = 0.0
	t.dotted[ident] = name
	return name
}

// Update records a value under the bus name's identifier form. Names outside
// the seeded set are tracked too; the table never shrinks.
func (t *Table) Update(dottedName string, value float64) {
	t.values[Identifier(dottedName)] = value
}

// Get returns the current value for an identifier.
func (t *Table) Get(ident string) (float64, bool) {
	v, ok := t.values[ident]
	return v, ok
}

// Bindings returns the live identifier→value map for expression evaluation.
// The caller must not retain it across loop iterations that mutate the table
// concurrently; in this single-threaded core there are none.
func (t *Table) Bindings() map[string]float64 { return t.values }

// DottedName returns the bus name for a seeded identifier.
func (t *Table) DottedName(ident string) (string, bool) {
	name, ok := t.dotted[ident]
	return name, ok
}

// Len returns the number of tracked signals.
func (t *Table) Len() int { return len(t.values) }

// Identifier converts a dotted bus name to its identifier form.
func Identifier(dottedName string) string {
	return strings.ReplaceAll(dottedName, ".", "_")
}

// Dotted converts an identifier back to its dotted bus name.
func Dotted(ident string) string {
	return strings.ReplaceAll(ident, "_", ".")
}

var dottedName = regexp.MustCompile(`\b[a-z]\w*(\.\w+)+`)

// NormalizeExpression rewrites the dotted signal names in a trigger
// expression to identifier form. Only name tokens are touched; decimal
// literals like 30.5 keep their dot.
func NormalizeExpression(expression string) string {
	return dottedName.ReplaceAllStringFunc(expression, Identifier)
}
