// Package geoid normalizes and validates Census geographic identifiers and
// hydrologic unit codes, and builds where clauses that match them.
package geoid

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Kind is the summary level of a GEOID, determined by its length.
type Kind int

const (
	// Unknown is any length that does not map to a summary level.
	Unknown Kind = iota
	// State is a 2-digit state FIPS code.
	State
	// County is a 5-digit state+county FIPS code.
	County
	// Tract is an 11-digit census tract GEOID.
	Tract
	// BlockGroup is a 12-digit block group GEOID.
	BlockGroup
	// Block is a 15-digit census block GEOID.
	Block
)

var kindNames = map[Kind]string{
	Unknown:    "unknown",
	State:      "state",
	County:     "county",
	Tract:      "tract",
	BlockGroup: "block_group",
	Block:      "block",
}

// String returns the summary level name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// KindOf returns the summary level for a normalized code.
func KindOf(code string) Kind {
	switch len(code) {
	case 2:
		return State
	case 5:
		return County
	case 11:
		return Tract
	case 12:
		return BlockGroup
	case 15:
		return Block
	default:
		return Unknown
	}
}

// Normalize trims whitespace and restores the leading zero that spreadsheets
// and numeric columns drop from 1-digit state and 4-digit county codes.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	switch len(code) {
	case 1, 4, 10, 14:
		return "0" + code
	default:
		return code
	}
}

// Validate normalizes code and checks that it is all digits with a known
// summary-level length.
func Validate(code string) (string, Kind, error) {
	code = Normalize(code)
	if code == "" {
		return "", Unknown, eris.New("geoid: empty code")
	}
	if !isDigits(code) {
		return "", Unknown, eris.Errorf("geoid: %q is not numeric", code)
	}
	k := KindOf(code)
	if k == Unknown {
		return "", Unknown, eris.Errorf("geoid: %q has unsupported length %d", code, len(code))
	}
	return code, k, nil
}

// WhereEquals builds a where clause comparing field to value. Quoted values
// have embedded single quotes doubled.
func WhereEquals(field, value string, quote bool) string {
	if !quote {
		return field + " = " + value
	}
	return field + " = '" + strings.ReplaceAll(value, "'", "''") + "'"
}

// WhereHasPrefix builds a quoted LIKE clause matching values of field that
// start with prefix. Single quotes are doubled; LIKE wildcards in prefix are
// not escaped, so callers pass validated codes.
func WhereHasPrefix(field, prefix string) string {
	return field + " LIKE '" + strings.ReplaceAll(prefix, "'", "''") + "%'"
}

// WhereHUC builds the where clause matching a validated HUC code against a
// field holding codes of fieldLevel digits. Shorter codes match every unit
// nested inside them; longer codes match the unit that contains them.
func WhereHUC(field string, fieldLevel int, code string) string {
	switch {
	case len(code) < fieldLevel:
		return WhereHasPrefix(field, code)
	case len(code) > fieldLevel:
		return WhereEquals(field, code[:fieldLevel], true)
	default:
		return WhereEquals(field, code, true)
	}
}

// ParseHUC validates a hydrologic unit code and returns its level (2, 4, ... 12).
func ParseHUC(code string) (string, int, error) {
	code = strings.TrimSpace(code)
	if !isDigits(code) {
		return "", 0, eris.Errorf("geoid: HUC %q is not numeric", code)
	}
	n := len(code)
	if n < 2 || n > 12 || n%2 != 0 {
		return "", 0, eris.Errorf("geoid: HUC %q must have an even number of digits between 2 and 12", code)
	}
	return code, n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
