// Package schema holds the table and column descriptors read from the source
// catalog. Values are built once per table and never mutated afterwards.
package schema

// Column describes one source column as declared in the SQLite catalog.
//
// Only Name and DeclaredType drive the migration. The remaining fields are
// read from PRAGMA table_info for reporting and are never rendered into
// destination DDL.
type Column struct {
	Position     int     `json:"position"`
	Name         string  `json:"name"`
	DeclaredType string  `json:"declared_type"`
	NotNull      bool    `json:"not_null"`
	Default      *string `json:"default,omitempty"`
	PrimaryKey   bool    `json:"primary_key"`
}

// Table is an ordered list of columns for one source table.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
