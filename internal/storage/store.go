package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	_ "modernc.org/sqlite"
)

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	RootSize  uint32
	Nodes     int
	Bytes     int
}

// EditStore keeps encoded edit trees in a SQLite database.
type EditStore struct {
	db *sql.DB
}

// OpenEditStore opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func OpenEditStore(path string) (*EditStore, error) {
	if path == "" {
		return nil, errors.New("empty edit store path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create edit store dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open edit store")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			root_size INTEGER NOT NULL,
			nodes INTEGER NOT NULL,
			data BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name, id);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return nil, multierr.Combine(errors.Wrap(err, "init edit store"), db.Close())
		}
	}
	return &EditStore{db: db}, nil
}

// Save stores t under name and returns the new row id.
func (s *EditStore) Save(ctx context.Context, name string, rootSize uint32, t *Tree, at time.Time) (int64, error) {
	data, err := Marshal(t)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (name, created_at, root_size, nodes, data) VALUES (?, ?, ?, ?, ?)`,
		name, at.UnixNano(), rootSize, t.Count(), data)
	if err != nil {
		return 0, errors.Wrapf(err, "save snapshot %q", name)
	}
	id, err := res.LastInsertId()
	return id, errors.Wrap(err, "snapshot id")
}

// Latest returns the newest tree saved under name. It reports sql.ErrNoRows,
// wrapped, when there is none.
func (s *EditStore) Latest(ctx context.Context, name string) (*Tree, SnapshotInfo, error) {
	var (
		info SnapshotInfo
		at   int64
		data []byte
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, root_size, nodes, data FROM snapshots
		 WHERE name = ? ORDER BY id DESC LIMIT 1`, name)
	if err := row.Scan(&info.ID, &info.Name, &at, &info.RootSize, &info.Nodes, &data); err != nil {
		return nil, info, errors.Wrapf(err, "latest snapshot %q", name)
	}
	info.CreatedAt = time.Unix(0, at)
	info.Bytes = len(data)
	t, err := Unmarshal(data)
	if err != nil {
		return nil, info, errors.Wrapf(err, "snapshot %d", info.ID)
	}
	return t, info, nil
}

// List returns every stored snapshot, oldest first, without payloads.
func (s *EditStore) List(ctx context.Context) (_ []SnapshotInfo, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, root_size, nodes, length(data) FROM snapshots ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info SnapshotInfo
			at   int64
		)
		if err := rows.Scan(&info.ID, &info.Name, &at, &info.RootSize, &info.Nodes, &info.Bytes); err != nil {
			return nil, errors.Wrap(err, "scan snapshot")
		}
		info.CreatedAt = time.Unix(0, at)
		out = append(out, info)
	}
	return out, errors.Wrap(rows.Err(), "iterate snapshots")
}

// Close closes the database.
func (s *EditStore) Close() error {
	return errors.Wrap(s.db.Close(), "close edit store")
}
