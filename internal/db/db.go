package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL backend behind a DB.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps a connection pool together with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// sqlitePragmas are applied to every new SQLite connection through the DSN.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// Open opens a database from a URL. postgres:// and postgresql:// URLs use
// the pgx driver; anything else is treated as a SQLite path, optionally
// prefixed with sqlite: or sqlite://.
func Open(url string) (*DB, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		pool, err := sql.Open("pgx", url)
		if err != nil {
			return nil, fmt.Errorf("opening postgres database: %w", err)
		}
		if err := pool.Ping(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return &DB{DB: pool, Dialect: DialectPostgres}, nil
	}

	path := SQLitePath(url)
	dsn := path + "?" + sqliteParams(path)
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		pool.SetMaxOpenConns(1)
	}

	if err := pool.Ping(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	return &DB{DB: pool, Dialect: DialectSQLite}, nil
}

// SQLitePath strips an optional sqlite scheme from a database URL.
func SQLitePath(url string) string {
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite:"} {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

func sqliteParams(path string) string {
	pragmas := sqlitePragmas
	if path != ":memory:" {
		pragmas = append([]string{"journal_mode(WAL)"}, pragmas...)
	}
	params := []string{"_time_format=sqlite"}
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	return strings.Join(params, "&")
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (d *DB) Rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
