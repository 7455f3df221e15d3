package postgresql

import (
	"fmt"
	"net/url"

	"github.com/lib/pq"
	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/dialects"
	"github.com/shopmonkeyus/eds-sensors/internal/model"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
)

type postgresqlDialect struct {
	writer dialects.TableWriter
}

var _ internal.Dialect = (*postgresqlDialect)(nil)
var _ internal.DialectHelp = (*postgresqlDialect)(nil)
var _ internal.DialectAlias = (*postgresqlDialect)(nil)

func columnType(column model.Column) string {
	switch column.Type {
	case model.String:
		if column.Format == "date-time" {
			return "TIMESTAMP WITH TIME ZONE"
		}
		return "TEXT"
	case model.Integer:
		return "BIGINT"
	case model.Float:
		return "DOUBLE PRECISION"
	case model.Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func getConnectionStringFromURL(urlstr string) (string, error) {
	u, err := url.Parse(urlstr)
	if err != nil {
		return "", fmt.Errorf("error parsing postgres db url: %w", err)
	}
	u.Scheme = "postgresql"
	if u.Port() == "" {
		u.Host = u.Host + ":5432"
	}
	var reencode bool
	q := u.Query()
	if !u.Query().Has("application_name") {
		q.Set("application_name", "eds-sensors")
		reencode = true
	}
	if util.IsLocalhost(u.Host) && !u.Query().Has("sslmode") {
		q.Set("sslmode", "disable")
		reencode = true
	}
	if reencode {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (p *postgresqlDialect) Name() string {
	return "PostgreSQL"
}

func (p *postgresqlDialect) Description() string {
	return "Creates the sensor tables in a PostgreSQL database."
}

func (p *postgresqlDialect) ExampleURL() string {
	return "postgres://localhost:5432/database"
}

func (p *postgresqlDialect) Aliases() []string {
	return []string{"postgresql"}
}

func (p *postgresqlDialect) DriverName() string {
	return "postgres"
}

func (p *postgresqlDialect) DSN(url string) (string, error) {
	return getConnectionStringFromURL(url)
}

func (p *postgresqlDialect) CreateSQL(entities []*model.EntityDefinition) []string {
	return p.writer.CreateSQL(entities)
}

func New() internal.Dialect {
	return &postgresqlDialect{
		writer: dialects.TableWriter{
			Quote:          pq.QuoteIdentifier,
			ColumnType:     columnType,
			PrimaryKeyType: "BIGSERIAL",
		},
	}
}

func init() {
	internal.RegisterDialect("postgres", New())
}
