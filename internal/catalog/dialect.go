package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	sqliteBusyTimeoutMillis = 5000
	postgresConnectTimeout  = 10

	pgUniqueViolation = "23505"
)

type dialect struct {
	name   string
	driver string
	schema []string

	// numbered reports whether placeholders are $1, $2... instead of ?.
	numbered bool

	// singleConn pins the pool to one connection.
	singleConn bool
}

var (
	sqliteDialect = dialect{
		name:       "sqlite",
		driver:     "sqlite",
		schema:     sqliteSchema,
		singleConn: true,
	}

	postgresDialect = dialect{
		name:     "postgres",
		driver:   "pgx",
		schema:   postgresSchema,
		numbered: true,
	}
)

// parseURI maps a store URI to a dialect and a driver DSN.
func parseURI(uri string) (dialect, string, error) {
	switch {
	case uri == "":
		return dialect{}, "", fmt.Errorf("empty store uri")
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		dsn, err := postgresDSN(uri)
		if err != nil {
			return dialect{}, "", err
		}
		return postgresDialect, dsn, nil
	case strings.HasPrefix(uri, "sqlite://"):
		path := strings.TrimPrefix(uri, "sqlite://")
		if path == "" {
			return dialect{}, "", fmt.Errorf("sqlite uri %q has no path", uri)
		}
		return sqliteDialect, sqliteDSN(path), nil
	case strings.HasPrefix(uri, "file:"):
		return sqliteDialect, sqliteDSN(uri), nil
	case strings.Contains(uri, "://"):
		return dialect{}, "", fmt.Errorf("unsupported store uri scheme in %q", uri)
	default:
		return sqliteDialect, sqliteDSN(uri), nil
	}
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, sep, sqliteBusyTimeoutMillis)
}

func postgresDSN(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse postgres uri: %w", err)
	}
	q := u.Query()
	if q.Get("connect_timeout") == "" {
		q.Set("connect_timeout", strconv.Itoa(postgresConnectTimeout))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d dialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}
