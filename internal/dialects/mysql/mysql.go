package mysql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/dialects"
	"github.com/shopmonkeyus/eds-sensors/internal/model"
)

type mysqlDialect struct {
	writer dialects.TableWriter
}

var _ internal.Dialect = (*mysqlDialect)(nil)
var _ internal.DialectHelp = (*mysqlDialect)(nil)

func quoteIdentifier(val string) string {
	return "`" + strings.ReplaceAll(val, "`", "``") + "`"
}

func columnType(column model.Column) string {
	switch column.Type {
	case model.String:
		if column.Format == "date-time" {
			if column.Nullable {
				return "TIMESTAMP NULL"
			}
			return "TIMESTAMP"
		}
		return "TEXT"
	case model.Integer:
		return "BIGINT"
	case model.Float:
		return "DOUBLE"
	case model.Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func parseURLToDSN(urlstr string) (string, error) {
	//username:password@protocol(address)/dbname?param=value
	u, err := url.Parse(urlstr)
	if err != nil {
		return "", fmt.Errorf("error parsing url: %w", err)
	}
	cfg := mysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Host + ":3306"
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.MultiStatements = true
	cfg.ParseTime = true
	for key, vals := range u.Query() {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[key] = strings.Join(vals, ",")
	}
	return cfg.FormatDSN(), nil
}

func (p *mysqlDialect) Name() string {
	return "MySQL"
}

func (p *mysqlDialect) Description() string {
	return "Creates the sensor tables in a MySQL database."
}

func (p *mysqlDialect) ExampleURL() string {
	return "mysql://localhost:3306/database"
}

func (p *mysqlDialect) DriverName() string {
	return "mysql"
}

func (p *mysqlDialect) DSN(url string) (string, error) {
	return parseURLToDSN(url)
}

func (p *mysqlDialect) CreateSQL(entities []*model.EntityDefinition) []string {
	return p.writer.CreateSQL(entities)
}

func New() internal.Dialect {
	return &mysqlDialect{
		writer: dialects.TableWriter{
			Quote:          quoteIdentifier,
			ColumnType:     columnType,
			PrimaryKeyType: "BIGINT AUTO_INCREMENT",
			Suffix:         " ENGINE=InnoDB CHARACTER SET=utf8mb4",
		},
	}
}

func init() {
	internal.RegisterDialect("mysql", New())
}
