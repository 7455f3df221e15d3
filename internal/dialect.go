package internal

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/shopmonkeyus/eds-sensors/internal/model"
)

// Dialect turns entity definitions into DDL for a specific database.
type Dialect interface {
	// Name is the unique name of the dialect.
	Name() string

	// CreateSQL returns one CREATE TABLE statement per entity, referenced tables first.
	CreateSQL(entities []*model.EntityDefinition) []string

	// DriverName is the database/sql driver name used to connect.
	DriverName() string

	// DSN converts a database url into the connection string the driver expects.
	DSN(url string) (string, error)
}

// DialectHelp is implemented by dialects that can describe themselves.
type DialectHelp interface {
	// Description is the description of the dialect.
	Description() string

	// ExampleURL should return an example URL for connecting to the database.
	ExampleURL() string
}

// DialectAlias is implemented by dialects registered under more than one url scheme.
type DialectAlias interface {
	// Aliases returns the additional schemes the dialect handles.
	Aliases() []string
}

// DialectMetadata is the description of a registered dialect.
type DialectMetadata struct {
	Scheme      string `json:"scheme"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ExampleURL  string `json:"exampleURL"`
}

var dialectRegistry = map[string]Dialect{}
var dialectAliasRegistry = map[string]string{}

// RegisterDialect registers a dialect for the url scheme and its aliases.
func RegisterDialect(scheme string, dialect Dialect) {
	dialectRegistry[scheme] = dialect
	if p, ok := dialect.(DialectAlias); ok {
		for _, alias := range p.Aliases() {
			dialectAliasRegistry[alias] = scheme
		}
	}
}

// GetDialect returns the dialect registered for the scheme or one of its aliases.
func GetDialect(scheme string) (Dialect, error) {
	if dialect := dialectRegistry[scheme]; dialect != nil {
		return dialect, nil
	}
	if protocol := dialectAliasRegistry[scheme]; protocol != "" {
		if dialect := dialectRegistry[protocol]; dialect != nil {
			return dialect, nil
		}
	}
	return nil, fmt.Errorf("no dialect registered for %s", scheme)
}

// GetDialectForURL returns the dialect for the scheme of a database url.
func GetDialectForURL(urlString string) (Dialect, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("database url is missing a scheme: %s", urlString)
	}
	return GetDialect(u.Scheme)
}

// Dialects returns the metadata of every registered dialect sorted by scheme.
func Dialects() []DialectMetadata {
	var res []DialectMetadata
	for scheme, dialect := range dialectRegistry {
		metadata := DialectMetadata{
			Scheme: scheme,
			Name:   dialect.Name(),
		}
		if help, ok := dialect.(DialectHelp); ok {
			metadata.Description = help.Description()
			metadata.ExampleURL = help.ExampleURL()
		}
		res = append(res, metadata)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Scheme < res[j].Scheme
	})
	return res
}
