// Package ddl maps SQLite declared column types onto destination column types
// and renders the small set of statements the migrator issues.
//
// The mapping is a coarse four-bucket classification. It is lossy: every
// string-like declaration becomes a 255-character string regardless of the
// declared length, and anything unrecognised becomes unbounded text.
package ddl

import "strings"

// Kind is the destination-independent bucket a declared type falls into.
type Kind int

const (
	// KindText is the fallback bucket (unbounded text).
	KindText Kind = iota
	// KindInteger covers every declared type containing "INT".
	KindInteger
	// KindString covers declared types containing "TEXT" or "CHAR".
	KindString
	// KindFloat covers declared types containing "REAL" or "FLOAT".
	KindFloat
)

// String returns a lower-case name for the bucket.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	default:
		return "text"
	}
}

// StringLength is the fixed length of the bounded string bucket.
const StringLength = 255

// Classify buckets a declared SQLite type. Matching is a case-insensitive
// substring test, first match wins:
//
//  1. "INT"            -> KindInteger
//  2. "TEXT" or "CHAR" -> KindString
//  3. "REAL" or "FLOAT" -> KindFloat
//  4. otherwise        -> KindText
//
// The order matters: "POINT" is an integer and "CHARINT" is an integer too.
func Classify(declared string) Kind {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return KindInteger
	case strings.Contains(t, "TEXT"), strings.Contains(t, "CHAR"):
		return KindString
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOAT"):
		return KindFloat
	default:
		return KindText
	}
}

// TypeNames names each bucket in a destination dialect.
type TypeNames struct {
	Integer string
	String  string
	Float   string
	Text    string
}

// Name returns the dialect type for k.
func (n TypeNames) Name(k Kind) string {
	switch k {
	case KindInteger:
		return n.Integer
	case KindString:
		return n.String
	case KindFloat:
		return n.Float
	default:
		return n.Text
	}
}

// MySQLTypes are the MySQL names for each bucket.
var MySQLTypes = TypeNames{
	Integer: "INT",
	String:  "VARCHAR(255)",
	Float:   "FLOAT",
	Text:    "TEXT",
}

// MapType maps a declared SQLite type to its MySQL column type.
func MapType(declared string) string {
	return MySQLTypes.Name(Classify(declared))
}
