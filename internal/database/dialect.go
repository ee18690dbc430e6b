package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect abstracts the differences between the supported database engines.
// Repositories write queries with ? placeholders; the dialect rewrites them
// where the engine needs a different syntax.
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN builds the data source name from the connection config
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders to the engine's syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId reports whether INSERT ids come from
	// Result.LastInsertId; engines without it get a RETURNING clause.
	SupportsLastInsertId() bool

	// ConfigureConnection applies engine-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir names the per-engine migration file directory
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the DDL for the migration tracking table
	CreateMigrationsTableQuery() string
}

// DialectConfig holds the connection parameters. Path is used by SQLite,
// URL by PostgreSQL and MySQL.
type DialectConfig struct {
	Path string
	URL  string
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, ...
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}
