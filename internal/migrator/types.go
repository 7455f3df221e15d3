package migrator

import (
	"database/sql"
	"time"

	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/model"
	"github.com/shopmonkeyus/go-common/logger"
)

type Action int

const (
	NoAction Action = iota
	AddAction
	UpdateAction
)

func (a Action) String() string {
	switch a {
	case NoAction:
		return "No Action"
	case AddAction:
		return "Add"
	case UpdateAction:
		return "Update"
	}
	return "Unknown"
}

// Column is a column of a table as found in the database.
type Column struct {
	Table      string
	Name       string
	IsNullable bool
	DataType   string
}

// TableChange is what a migration would do to the table of an entity.
type TableChange struct {
	Entity string
	Table  string
	Action Action

	// MissingColumns are columns of the entity the existing table doesn't have. They are
	// reported but never added since existing tables are left alone.
	MissingColumns []string
}

type ProgressFunc func(done int, total int, msg string)

type Config struct {
	Logger   logger.Logger
	DB       *sql.DB
	Dialect  internal.Dialect
	Entities model.EntityMap
	DryRun   bool

	// Progress is optional and called after every statement.
	Progress ProgressFunc
}

const pingTimeout = 5 * time.Second
