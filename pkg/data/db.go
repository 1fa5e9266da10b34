package data

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName string = "data.db"

	schemaVersion = 1
)

// Dialect is the SQL flavor of a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// Store is a database handle that knows its dialect.
type Store struct {
	*sql.DB
	Dialect Dialect
}

// DialectOf picks the dialect from a DSN: postgres URLs select PostgreSQL,
// everything else is a SQLite file path.
func DialectOf(dsn string) Dialect {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Init creates the schema in the database at dsn. It is idempotent.
func Init(dsn string) error {
	if dsn == "" {
		return errors.New("database path not specified")
	}

	s, err := GetDB(dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer s.Close()

	b, err := f.ReadFile(fmt.Sprintf("sql/%s.sql", s.Dialect))
	if err != nil {
		return fmt.Errorf("failed to read the schema creation file: %w", err)
	}

	slog.Debug("applying db schema", "dialect", s.Dialect)
	if _, err := s.Exec(string(b)); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	v, err := s.Version()
	if err != nil {
		return err
	}
	if v != schemaVersion {
		return fmt.Errorf("unsupported schema version %d, expected %d", v, schemaVersion)
	}

	return nil
}

// GetDB opens the database at dsn without touching the schema.
func GetDB(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database path not specified")
	}

	d := DialectOf(dsn)
	conn, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d, err)
	}

	if d == DialectSQLite {
		// single writer
		conn.SetMaxOpenConns(1)
	}

	return &Store{DB: conn, Dialect: d}, nil
}

// Version returns the applied schema version, 0 when none.
func (s *Store) Version() (int, error) {
	if s == nil || s.DB == nil {
		return 0, errDBNotInitialized
	}

	var v int
	if err := s.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// rebind converts '?' placeholders to the dialect's form.
func (s *Store) rebind(q string) string {
	if s.Dialect != DialectPostgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
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

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
