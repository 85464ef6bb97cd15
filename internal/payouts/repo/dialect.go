package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect captures the few SQL differences between the supported drivers.
type Dialect int

const (
	DialectMySQL Dialect = iota
	DialectPostgres
	DialectSQLite
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "mysql":
		return DialectMySQL, nil
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectSQLite:
		return "sqlite3"
	default:
		return "mysql"
	}
}

func (d Dialect) String() string { return d.DriverName() }

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// NormalizeDSN forces the connection options the repositories rely on.
// MySQL needs parseTime so DATETIME columns scan into time.Time.
func (d Dialect) NormalizeDSN(dsn string) (string, error) {
	if d != DialectMySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Open opens and pings a database for the given driver.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, 0, err
	}
	dsn, err = dialect.NormalizeDSN(dsn)
	if err != nil {
		return nil, 0, err
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, 0, err
	}
	if dialect == DialectSQLite {
		// One writer; also keeps :memory: databases on a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, 0, err
	}
	return db, dialect, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertID runs an INSERT and returns the generated key.
func (d Dialect) insertID(ctx context.Context, x execer, query, pk string, args ...any) (int64, error) {
	if d == DialectPostgres {
		var id int64
		err := x.QueryRowContext(ctx, d.Rebind(query+" RETURNING "+pk), args...).Scan(&id)
		return id, err
	}
	res, err := x.ExecContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
