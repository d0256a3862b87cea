// Package sqlite provides a SQLite-backed portal store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dkeye/portald/internal/domain"
	"github.com/dkeye/portald/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS portals (
	guild_id            TEXT PRIMARY KEY,
	category_id         TEXT NOT NULL,
	trigger_channel_id  TEXT NOT NULL,
	settings_channel_id TEXT NOT NULL
);`

// Store provides a SQLite-backed implementation of storage.PortalStore.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite portal store at the provided path and applies the
// schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database. Nil-safe so callers can defer it
// in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get fetches the portal row for a guild.
func (s *Store) Get(ctx context.Context, guild domain.GuildID) (domain.Portal, error) {
	if guild == "" {
		return domain.Portal{}, domain.ErrGuildIDEmpty
	}

	var p domain.Portal
	row := s.db.QueryRowContext(ctx,
		`SELECT guild_id, category_id, trigger_channel_id, settings_channel_id
		 FROM portals WHERE guild_id = ?`, string(guild))
	if err := row.Scan(&p.GuildID, &p.CategoryID, &p.TriggerChannelID, &p.SettingsChannelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Portal{}, storage.ErrNotFound
		}
		return domain.Portal{}, fmt.Errorf("select portal: %w", err)
	}
	return p, nil
}

// Put inserts or replaces the portal row for a guild.
func (s *Store) Put(ctx context.Context, portal domain.Portal) error {
	if portal.GuildID == "" {
		return domain.ErrGuildIDEmpty
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO portals (guild_id, category_id, trigger_channel_id, settings_channel_id)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET
			category_id = excluded.category_id,
			trigger_channel_id = excluded.trigger_channel_id,
			settings_channel_id = excluded.settings_channel_id`,
		string(portal.GuildID), string(portal.CategoryID),
		string(portal.TriggerChannelID), string(portal.SettingsChannelID))
	if err != nil {
		return fmt.Errorf("upsert portal: %w", err)
	}
	return nil
}

// Delete removes the portal row for a guild. Deleting an absent row is
// not an error.
func (s *Store) Delete(ctx context.Context, guild domain.GuildID) error {
	if guild == "" {
		return domain.ErrGuildIDEmpty
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM portals WHERE guild_id = ?`, string(guild)); err != nil {
		return fmt.Errorf("delete portal: %w", err)
	}
	return nil
}
