// Package dialects holds the DDL writer shared by the database dialects in its sub packages.
package dialects

import (
	"strings"

	"github.com/shopmonkeyus/eds-sensors/internal/model"
)

// TableWriter writes CREATE TABLE statements. Each dialect configures the parts that differ.
type TableWriter struct {
	// Quote quotes an identifier.
	Quote func(name string) string
	// ColumnType returns the SQL type of a non key column.
	ColumnType func(column model.Column) string
	// PrimaryKeyType is the type and generation clause of the synthetic key.
	PrimaryKeyType string
	// Prefix returns what goes before the column list, by default CREATE TABLE IF NOT EXISTS <table>.
	Prefix func(table string) string
	// Suffix is appended after the closing parenthesis.
	Suffix string
}

// CreateTable returns the CREATE TABLE statement for one entity.
func (w TableWriter) CreateTable(e *model.EntityDefinition) string {
	var sql strings.Builder
	table := w.Quote(e.Table)
	if w.Prefix != nil {
		sql.WriteString(w.Prefix(table))
	} else {
		sql.WriteString("CREATE TABLE IF NOT EXISTS ")
		sql.WriteString(table)
	}
	sql.WriteString(" (\n")
	sql.WriteString("\t")
	sql.WriteString(w.Quote(e.PrimaryKey.Name))
	sql.WriteString(" ")
	sql.WriteString(w.PrimaryKeyType)
	sql.WriteString(" NOT NULL,\n")
	for _, column := range e.Columns {
		sql.WriteString("\t")
		sql.WriteString(w.Quote(column.Name))
		sql.WriteString(" ")
		sql.WriteString(w.ColumnType(column))
		if !column.Nullable {
			sql.WriteString(" NOT NULL")
		}
		sql.WriteString(",\n")
	}
	sql.WriteString("\tPRIMARY KEY (")
	sql.WriteString(w.Quote(e.PrimaryKey.Name))
	sql.WriteString(")")
	for _, fk := range e.ForeignKeys {
		sql.WriteString(",\n\tFOREIGN KEY (")
		sql.WriteString(w.Quote(fk.Column))
		sql.WriteString(") REFERENCES ")
		sql.WriteString(w.Quote(fk.TargetTable))
		sql.WriteString(" (")
		sql.WriteString(w.Quote(fk.TargetColumn))
		sql.WriteString(")")
		if fk.OnDelete != "" {
			sql.WriteString(" ON DELETE ")
			sql.WriteString(fk.OnDelete)
		}
	}
	sql.WriteString("\n)")
	sql.WriteString(w.Suffix)
	sql.WriteString(";\n")
	return sql.String()
}

// CreateSQL returns one statement per entity with referenced tables before the tables referencing them.
func (w TableWriter) CreateSQL(entities []*model.EntityDefinition) []string {
	m := make(model.EntityMap, len(entities))
	for _, e := range entities {
		m[e.Name] = e
	}
	res := make([]string, 0, len(entities))
	for _, e := range m.Sorted() {
		res = append(res, w.CreateTable(e))
	}
	return res
}
