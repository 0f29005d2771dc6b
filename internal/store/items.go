package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Kind is the kind of a project item.
type Kind string

const (
	KindFolder Kind = "folder"
	KindScene  Kind = "scene"
)

// Item is a folder or scene in the project tree.
type Item struct {
	ID       string
	ParentID string // "" for items in the project root
	Name     string
	Kind     Kind
}

// NameKey returns the case-insensitive comparison key of a name.
func NameKey(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

func newItemID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func nullable(parentID string) any {
	if parentID == "" {
		return nil
	}
	return parentID
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// checkFolder verifies that id names a folder. "" is the root.
func checkFolder(ctx context.Context, q querier, id string) error {
	if id == "" {
		return nil
	}
	var kind string
	err := q.QueryRowContext(ctx, `SELECT kind FROM project_items WHERE id = ?`, id).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && Kind(kind) != KindFolder) {
		return fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	return err
}

func nextSeq(ctx context.Context, q querier) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx, `SELECT ifnull(MAX(seq), 0) + 1 FROM project_items`).Scan(&seq)
	return seq, err
}

// CreateFolder creates a folder under parentID.
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, fmt.Errorf("create folder: begin tx: %w", err)
	}
	defer tx.Rollback()

	item, err := insertItem(ctx, tx, parentID, name, KindFolder)
	if err != nil {
		return Item{}, fmt.Errorf("create folder %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return Item{}, fmt.Errorf("create folder: commit: %w", err)
	}
	return item, nil
}

func insertItem(ctx context.Context, tx *sql.Tx, parentID, name string, kind Kind) (Item, error) {
	if err := checkFolder(ctx, tx, parentID); err != nil {
		return Item{}, err
	}
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return Item{}, err
	}

	item := Item{ID: newItemID(), ParentID: parentID, Name: name, Kind: kind}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO project_items (id, parent_id, name, name_key, kind, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, item.ID, nullable(parentID), name, NameKey(name), string(kind), seq)
	if isUniqueViolation(err) {
		return Item{}, ErrExists
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// Get returns the item with the given id.
func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_id, name, kind FROM project_items WHERE id = ?
	`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return item, err
}

// Lookup finds an item by name, ignoring case, in parentID.
func (s *Store) Lookup(ctx context.Context, parentID, name string, kind Kind) (Item, error) {
	return lookup(ctx, s.db, parentID, name, kind)
}

func lookup(ctx context.Context, q querier, parentID, name string, kind Kind) (Item, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, parent_id, name, kind FROM project_items
		WHERE ifnull(parent_id, '') = ? AND kind = ? AND name_key = ?
	`, parentID, string(kind), NameKey(name))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	return item, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (Item, error) {
	var (
		item   Item
		parent sql.NullString
		kind   string
	)
	if err := row.Scan(&item.ID, &parent, &item.Name, &kind); err != nil {
		return Item{}, err
	}
	item.ParentID = parent.String
	item.Kind = Kind(kind)
	return item, nil
}

// List returns the children of parentID: folders first, then scenes, each
// sorted by name ignoring case.
//
// Returns an empty slice (not nil) for an empty folder.
func (s *Store) List(ctx context.Context, parentID string) ([]Item, error) {
	if err := checkFolder(ctx, s.db, parentID); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, name, kind FROM project_items
		WHERE ifnull(parent_id, '') = ?
		ORDER BY kind = 'scene' ASC, name_key ASC, name COLLATE BINARY ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Delete removes an item. Deleting a folder removes everything in it.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM project_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return nil
}

// splitPath splits a slash-separated folder path, ignoring empty segments.
func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// ResolveFolder returns the folder at a slash-separated path. "" and "/"
// resolve to the root, whose Item has an empty ID.
func (s *Store) ResolveFolder(ctx context.Context, path string) (Item, error) {
	var cur Item
	for _, name := range splitPath(path) {
		next, err := s.Lookup(ctx, cur.ID, name, KindFolder)
		if err != nil {
			return Item{}, fmt.Errorf("resolve %q: %w", path, err)
		}
		cur = next
	}
	return cur, nil
}

// MkdirAll returns the folder at path, creating missing folders.
func (s *Store) MkdirAll(ctx context.Context, path string) (Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, fmt.Errorf("mkdir: begin tx: %w", err)
	}
	defer tx.Rollback()

	var cur Item
	for _, name := range splitPath(path) {
		next, err := lookup(ctx, tx, cur.ID, name, KindFolder)
		if errors.Is(err, ErrNotFound) {
			next, err = insertItem(ctx, tx, cur.ID, name, KindFolder)
		}
		if err != nil {
			return Item{}, fmt.Errorf("mkdir %q: %w", path, err)
		}
		cur = next
	}
	if err := tx.Commit(); err != nil {
		return Item{}, fmt.Errorf("mkdir: commit: %w", err)
	}
	return cur, nil
}
