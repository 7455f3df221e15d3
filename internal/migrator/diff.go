package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/model"
	"github.com/shopmonkeyus/go-common/logger"
)

// Format writes a human readable description of the change.
func (c *TableChange) Format(writer io.Writer) {
	switch c.Action {
	case AddAction:
		WriteAddedHeader(writer, c.Table, "table")
	case UpdateAction:
		WriteChangeHeader(writer, c.Table, "table")
		for _, name := range c.MissingColumns {
			WriteSkippedLine(writer, "column", name, "(existing tables are not altered)")
		}
	default:
		WriteUnchangedHeader(writer, c.Table, "table")
	}
}

func buildTableQuerySchemaString(dialect internal.Dialect) string {
	var placeholder string
	switch dialect.DriverName() {
	case "postgres":
		placeholder = "$1"
	case "sqlserver":
		placeholder = "@p1"
	default:
		placeholder = "?"
	}
	return `SELECT
	c.table_name,
	c.column_name,
	c.is_nullable,
	c.data_type
FROM
	information_schema.columns c
WHERE
	c.table_name = ` + placeholder + `
ORDER BY
	c.table_name, c.ordinal_position;`
}

func loadTableSchema(ctx context.Context, logger logger.Logger, db *sql.DB, dialect internal.Dialect, tableName string) ([]Column, error) {
	started := time.Now()
	rows, err := db.QueryContext(ctx, buildTableQuerySchemaString(dialect), tableName)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			// this means there is not a table made and we need to build one...
			return []Column{}, nil
		}
		return nil, fmt.Errorf("error fetching column metadata from the db: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var tn, cn, isn, dt string
		if err := rows.Scan(&tn, &cn, &isn, &dt); err != nil {
			return nil, fmt.Errorf("error reading db row: %w", err)
		}
		columns = append(columns, Column{
			Table:      tn,
			Name:       cn,
			IsNullable: isn == "YES",
			DataType:   dt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading db rows: %w", err)
	}
	logger.Trace("loaded schema of %s in %v", tableName, time.Since(started))
	return columns, nil
}

func diffEntity(columns []Column, entity *model.EntityDefinition) *TableChange {
	change := &TableChange{
		Entity: entity.Name,
		Table:  entity.Table,
		Action: NoAction,
	}
	if len(columns) == 0 {
		change.Action = AddAction
		return change
	}
	found := make(map[string]bool, len(columns))
	for _, column := range columns {
		found[strings.ToLower(column.Name)] = true
	}
	for _, name := range entity.ColumnNames() {
		if !found[strings.ToLower(name)] {
			change.Action = UpdateAction
			change.MissingColumns = append(change.MissingColumns, name)
		}
	}
	return change
}

// Plan compares the entities with the tables in the database and returns one change per
// entity, referenced tables first.
func Plan(ctx context.Context, logger logger.Logger, db *sql.DB, dialect internal.Dialect, entities model.EntityMap) ([]*TableChange, error) {
	var changes []*TableChange
	for _, entity := range entities.Sorted() {
		columns, err := loadTableSchema(ctx, logger, db, dialect, entity.Table)
		if err != nil {
			return nil, err
		}
		changes = append(changes, diffEntity(columns, entity))
	}
	return changes, nil
}
