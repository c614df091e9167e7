package ddl

import (
	"fmt"
	"strings"

	"sqlite2mysql/internal/schema"
)

// ColumnDef is a destination column: a name and an already mapped SQL type.
type ColumnDef struct {
	Name    string
	SQLType string
}

// TableDef is the destination shape of one table. No keys, indexes or
// constraints are carried over from the source.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// FromTable applies the type mapping of names to every column of t, keeping
// the declaration order.
func FromTable(t schema.Table, names TypeNames) TableDef {
	cols := make([]ColumnDef, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = ColumnDef{Name: c.Name, SQLType: names.Name(Classify(c.DeclaredType))}
	}
	return TableDef{Name: t.Name, Columns: cols}
}

// BuildDropTableSQL returns DROP TABLE IF EXISTS <name>.
//
// Identifiers are emitted verbatim. A reserved word used as a table name
// therefore fails on the destination, which the migrator reports as a schema
// error and skips.
func BuildDropTableSQL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	return "DROP TABLE IF EXISTS " + name, nil
}

// BuildCreateTableSQL renders:
//
//	CREATE TABLE IF NOT EXISTS <name> (<col> <type>, <col> <type>, ...)
func BuildCreateTableSQL(t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: table %s: at least one column is required", name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		if strings.TrimSpace(c.SQLType) == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", c.Name)
		}
		cols = append(cols, c.Name+" "+c.SQLType)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(cols, ", ")), nil
}

// Placeholder renders the i-th (1-based) positional bind parameter.
type Placeholder func(i int) string

// QuestionMark is the ? placeholder used by MySQL and SQLite.
func QuestionMark(int) string { return "?" }

// DollarN is the $1, $2, ... placeholder used by Postgres.
func DollarN(i int) string { return fmt.Sprintf("$%d", i) }

// AtPN is the @p1, @p2, ... placeholder used by SQL Server.
func AtPN(i int) string { return fmt.Sprintf("@p%d", i) }

// BuildInsertSQL renders INSERT INTO <name> VALUES (<p1>, <p2>, ...) with n
// positional parameters. Values are always bound, never interpolated.
func BuildInsertSQL(name string, n int, ph Placeholder) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if n <= 0 {
		return "", fmt.Errorf("ddl: insert into %s: at least one value is required", name)
	}
	if ph == nil {
		ph = QuestionMark
	}

	marks := make([]string, n)
	for i := range marks {
		marks[i] = ph(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", name, strings.Join(marks, ", ")), nil
}
