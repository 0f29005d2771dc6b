package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PayloadMeta describes an encoded payload.
type PayloadMeta struct {
	Digest        string
	FormatVersion int
	Records       int
}

// Scene is a saved scene item and its payload metadata.
type Scene struct {
	Item
	PayloadMeta
	Size     int
	Revision int64
}

// PutScene saves data as the scene name in parentID.
//
// If a scene with the same name (ignoring case) exists, PutScene returns
// ErrExists unless overwrite is set, in which case the payload is replaced,
// the stored name keeps its original spelling and the revision increments.
func (s *Store) PutScene(ctx context.Context, parentID, name string, data []byte, meta PayloadMeta, overwrite bool) (Scene, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Scene{}, fmt.Errorf("put scene: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkFolder(ctx, tx, parentID); err != nil {
		return Scene{}, fmt.Errorf("put scene %q: %w", name, err)
	}

	item, err := lookup(ctx, tx, parentID, name, KindScene)
	switch {
	case err == nil && !overwrite:
		return Scene{}, fmt.Errorf("put scene %q: %w", name, ErrExists)

	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE scene_payloads
			SET data = ?, digest = ?, format_version = ?, record_count = ?, revision = revision + 1
			WHERE item_id = ?
		`, data, meta.Digest, meta.FormatVersion, meta.Records, item.ID)

	case errors.Is(err, ErrNotFound):
		item, err = insertItem(ctx, tx, parentID, name, KindScene)
		if err != nil {
			return Scene{}, fmt.Errorf("put scene %q: %w", name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scene_payloads (item_id, data, digest, format_version, record_count)
			VALUES (?, ?, ?, ?, ?)
		`, item.ID, data, meta.Digest, meta.FormatVersion, meta.Records)
	}
	if err != nil {
		return Scene{}, fmt.Errorf("put scene %q: %w", name, err)
	}

	sc, err := readSceneInfo(ctx, tx, item.ID)
	if err != nil {
		return Scene{}, err
	}
	if err := tx.Commit(); err != nil {
		return Scene{}, fmt.Errorf("put scene: commit: %w", err)
	}
	return sc, nil
}

// ReadScene returns a scene's metadata and payload bytes.
func (s *Store) ReadScene(ctx context.Context, id string) (Scene, []byte, error) {
	sc, err := readSceneInfo(ctx, s.db, id)
	if err != nil {
		return Scene{}, nil, err
	}
	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT data FROM scene_payloads WHERE item_id = ?`, id).Scan(&data)
	if err != nil {
		return Scene{}, nil, fmt.Errorf("read scene %s: %w", id, err)
	}
	return sc, data, nil
}

// SceneInfo returns a scene's metadata without its payload.
func (s *Store) SceneInfo(ctx context.Context, id string) (Scene, error) {
	return readSceneInfo(ctx, s.db, id)
}

func readSceneInfo(ctx context.Context, q querier, id string) (Scene, error) {
	var (
		sc     Scene
		parent sql.NullString
		kind   string
	)
	err := q.QueryRowContext(ctx, `
		SELECT i.id, i.parent_id, i.name, i.kind,
		       p.digest, p.format_version, p.record_count, length(p.data), p.revision
		FROM project_items i
		JOIN scene_payloads p ON p.item_id = i.id
		WHERE i.id = ?
	`, id).Scan(&sc.ID, &parent, &sc.Name, &kind,
		&sc.Digest, &sc.FormatVersion, &sc.Records, &sc.Size, &sc.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return Scene{}, fmt.Errorf("scene %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Scene{}, fmt.Errorf("read scene %s: %w", id, err)
	}
	sc.ParentID = parent.String
	sc.Kind = Kind(kind)
	return sc, nil
}

// FindByDigest returns every scene whose payload has the given digest,
// ordered by name.
func (s *Store) FindByDigest(ctx context.Context, digest string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.parent_id, i.name, i.kind
		FROM scene_payloads p
		JOIN project_items i ON i.id = p.item_id
		WHERE p.digest = ?
		ORDER BY i.name_key ASC, i.id COLLATE BINARY ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("query digest: %w", err)
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
	return items, rows.Err()
}
