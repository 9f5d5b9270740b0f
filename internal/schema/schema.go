// Package schema provisions the destination for a load run: table
// definitions, CREATE TABLE rendering for both supported engines, the
// SQL Server memory-optimized variants, and helpers to derive safe column
// identifiers from dataset header text.
//
// Provisioning is a surrounding concern; the load pipeline itself never
// imports this package.
package schema

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ColumnDef describes a single column in a destination table. Name is the
// logical, unquoted column name; quoting happens at render time.
type ColumnDef struct {
	Name    string
	SQLType string
}

// TableDef is an ordered column list for a named table.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// ColumnNames returns the ordered column name list, as needed by the bulk
// copy call.
func (t TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// DefaultTable builds an n-column table of positional text columns
// (c1..cN). The benchmark does not parse or enforce field types, so text
// columns are the lowest-friction destination when no header is supplied.
func DefaultTable(name string, n int, driver string) TableDef {
	cols := make([]ColumnDef, n)
	for i := range cols {
		cols[i] = ColumnDef{Name: fmt.Sprintf("c%d", i+1), SQLType: textType(driver)}
	}
	return TableDef{Name: name, Columns: cols}
}

// TableFromHeader derives column names from a header line's fields,
// folding each into a safe SQL identifier. Duplicate or empty names fall
// back to their positional form.
func TableFromHeader(name string, fields []string, driver string) TableDef {
	cols := make([]ColumnDef, len(fields))
	seen := map[string]bool{}
	for i, f := range fields {
		id := Identifier(f)
		if id == "" || seen[id] {
			id = fmt.Sprintf("c%d", i+1)
		}
		seen[id] = true
		cols[i] = ColumnDef{Name: id, SQLType: textType(driver)}
	}
	return TableDef{Name: name, Columns: cols}
}

func textType(driver string) string {
	if strings.ToLower(driver) == "mssql" {
		return "NVARCHAR(MAX)"
	}
	return "TEXT"
}

// Identifier folds arbitrary header text into a lowercase SQL identifier:
// diacritics are decomposed and removed, runs of non-alphanumerics become
// single underscores, and a leading digit gets a "c_" prefix.
func Identifier(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	lastUnderscore := true // also trims leading underscores
	for _, r := range strings.ToLower(ascii) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "_")
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "c_" + out
	}
	return out
}

// CreateTableSQL renders engine-appropriate create-if-missing DDL.
//
// MSSQL options: memoryOptimized creates an In-Memory OLTP table with
// SCHEMA_ONLY durability, which requires the database to carry a
// memory-optimized filegroup (see MemoryOptimizedFilegroupSQL).
// Postgres options: unlogged skips WAL for load speed.
func CreateTableSQL(driver string, t TableDef, memoryOptimized, unlogged bool) (string, error) {
	if t.Name == "" || len(t.Columns) == 0 {
		return "", fmt.Errorf("table definition needs a name and at least one column")
	}
	cols := make([]string, len(t.Columns))

	switch strings.ToLower(driver) {
	case "mssql":
		for i, c := range t.Columns {
			cols[i] = fmt.Sprintf("[%s] %s", c.Name, c.SQLType)
		}
		if memoryOptimized {
			// Memory-optimized tables need a PK index; a surrogate
			// identity column keeps the data columns positional.
			body := fmt.Sprintf(
				"CREATE TABLE [%s] (\n\t[_id] BIGINT IDENTITY NOT NULL PRIMARY KEY NONCLUSTERED,\n\t%s\n) WITH (MEMORY_OPTIMIZED = ON, DURABILITY = SCHEMA_ONLY)",
				t.Name, strings.Join(cols, ",\n\t"))
			return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", t.Name, body), nil
		}
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE [%s] (\n\t%s\n)",
			t.Name, t.Name, strings.Join(cols, ",\n\t")), nil

	case "postgres":
		for i, c := range t.Columns {
			cols[i] = fmt.Sprintf("\"%s\" %s", c.Name, c.SQLType)
		}
		kind := "TABLE"
		if unlogged {
			kind = "UNLOGGED TABLE"
		}
		return fmt.Sprintf("CREATE %s IF NOT EXISTS \"%s\" (\n\t%s\n)",
			kind, t.Name, strings.Join(cols, ",\n\t")), nil

	default:
		return "", fmt.Errorf("unknown driver: %s", driver)
	}
}

// MemoryOptimizedFilegroupSQL adds the memory-optimized filegroup a SQL
// Server database needs before any MEMORY_OPTIMIZED table can be created.
// dataPath is the directory for the filegroup's container.
func MemoryOptimizedFilegroupSQL(dbName, dataPath string) string {
	return fmt.Sprintf(`IF NOT EXISTS (SELECT 1 FROM sys.filegroups WHERE type = 'FX')
BEGIN
	ALTER DATABASE [%[1]s] ADD FILEGROUP [%[1]s_mod] CONTAINS MEMORY_OPTIMIZED_DATA;
	ALTER DATABASE [%[1]s] ADD FILE (name='%[1]s_mod', filename='%[2]s') TO FILEGROUP [%[1]s_mod];
END`, dbName, dataPath)
}

// TruncateSQL empties the destination table so re-runs start from zero.
func TruncateSQL(driver, table string) string {
	if strings.ToLower(driver) == "mssql" {
		return fmt.Sprintf("TRUNCATE TABLE [%s]", table)
	}
	return fmt.Sprintf("TRUNCATE TABLE \"%s\"", table)
}
