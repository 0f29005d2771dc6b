package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stamped into PRAGMA user_version. Bump it when
// schema.sql changes in a way older binaries cannot read.
const schemaVersion = 1

var (
	// ErrNotFound is returned when an item, or the folder it should live
	// in, does not exist.
	ErrNotFound = errors.New("store: item not found")

	// ErrExists is returned when an item of the same kind and name (ignoring
	// case) already exists in the folder.
	ErrExists = errors.New("store: item already exists")

	// ErrNewerSchema is returned by Open for a project written by a newer
	// version of rtsl.
	ErrNewerSchema = errors.New("store: project schema is newer than this build")
)

// Store is an rtsl project database.
type Store struct {
	db *sql.DB
}

// connParams are applied by the driver to every connection it opens, so
// foreign keys stay enforced even if the pool replaces a connection.
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// Open opens the project database at path, creating the file and its
// tables on first use.
func Open(path string) (*Store, error) {
	if strings.ContainsRune(path, '?') {
		return nil, fmt.Errorf("open project %q: path may not contain '?'", path)
	}

	db, err := sql.Open("sqlite3", path+"?"+connParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("open project %q: %w", path, err)
	}
	// One connection serializes writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open project %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// prepare checks the stored schema version, then creates any missing
// tables and indexes and stamps the current version.
func prepare(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrNewerSchema, version, schemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
	}
	return nil
}

// Close releases the database. Closing twice is harmless.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
