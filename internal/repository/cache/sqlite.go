package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteStore(path string, l logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		logger: l,
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	l.Info("sqlite store initialized", "path", path)

	return s, nil
}

func (s *SQLiteStore) runMigrations() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.Up(s.db, "migrations")
}

var _ TileStore = (*SQLiteStore)(nil)

func (s *SQLiteStore) Get(ctx context.Context, idx tile.Index) ([]byte, bool, error) {
	s.logger.Debug("sqlite store get", "tile", idx.CanonicalKey())

	query := `SELECT tile_data
	FROM tile_cache
	WHERE z = ? AND x = ? AND y = ?`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, idx.Level, idx.X, idx.Y).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		s.logger.Error("sqlite store get failed", "tile", idx.CanonicalKey(), "error", err)
		return nil, false, err
	}

	return data, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, idx tile.Index, data []byte) error {
	s.logger.Debug("sqlite store set", "tile", idx.CanonicalKey(), "size", len(data))

	query := `INSERT INTO tile_cache (z, x, y, tile_data)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(z, x, y) DO UPDATE SET tile_data = excluded.tile_data, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, idx.Level, idx.X, idx.Y, data); err != nil {
		s.logger.Error("sqlite store set failed", "tile", idx.CanonicalKey(), "error", err)
		return err
	}

	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, idx tile.Index) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tile_cache WHERE z = ? AND x = ? AND y = ?`, idx.Level, idx.X, idx.Y)
	if err != nil {
		s.logger.Error("sqlite store delete failed", "tile", idx.CanonicalKey(), "error", err)
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
