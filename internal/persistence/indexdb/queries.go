package indexdb

import (
	"context"
	"database/sql"
	"errors"
)

type AuditRow struct {
	Tick      uint64
	Action    string
	Handle    string
	Structure string
	X, Y      int
	Dir       string
	Released  int
}

type SnapshotRow struct {
	Tick       uint64
	Path       string
	WorldID    string
	Structures int
	Belts      int
}

// TickDigest returns the indexed digest of tick.
func (s *SQLiteIndex) TickDigest(ctx context.Context, tick uint64) (string, bool, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM ticks WHERE tick = ?`, int64(tick)).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

// CommandCount counts indexed commands of one kind.
func (s *SQLiteIndex) CommandCount(ctx context.Context, kind string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands WHERE kind = ?`, kind).Scan(&n)
	return n, err
}

// AuditsForHandle lists the placement and removal of one structure handle.
func (s *SQLiteIndex) AuditsForHandle(ctx context.Context, handle string) ([]AuditRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, action, handle, structure, x, y, dir, released FROM audits WHERE handle = ? ORDER BY tick, seq`, handle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		var tick int64
		if err := rows.Scan(&tick, &r.Action, &r.Handle, &r.Structure, &r.X, &r.Y, &r.Dir, &r.Released); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the indexed snapshot with the highest tick.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (SnapshotRow, bool, error) {
	var r SnapshotRow
	var tick int64
	err := s.db.QueryRowContext(ctx,
		`SELECT tick, path, world_id, structures, belts FROM snapshots ORDER BY tick DESC LIMIT 1`,
	).Scan(&tick, &r.Path, &r.WorldID, &r.Structures, &r.Belts)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	r.Tick = uint64(tick)
	return r, true, nil
}

// CatalogDigest returns the stored digest of a catalog document.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	return d, err
}
