// Package localstore is the client-side key/value store of the application,
// kept in a local SQLite file. It holds the auth session between runs and the
// pending registration name.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goodfit/internal/model"

	_ "modernc.org/sqlite"
)

const (
	keySession     = "auth_session"
	keyPendingName = "pending_registration_name"
)

// Store is a small key/value table in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path. ":memory:" gives a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare local store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value under key; ok is false when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// LoadSession returns the persisted auth session, or nil.
func (s *Store) LoadSession() (*model.AuthSession, error) {
	raw, ok, err := s.Get(context.Background(), keySession)
	if err != nil || !ok {
		return nil, err
	}
	var session model.AuthSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		// An unreadable session is as good as none.
		return nil, s.ClearSession()
	}
	return &session, nil
}

func (s *Store) SaveSession(session *model.AuthSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.Set(context.Background(), keySession, string(data))
}

func (s *Store) ClearSession() error {
	return s.Delete(context.Background(), keySession)
}

// StashPendingName keeps the name given at registration until the code is verified.
func (s *Store) StashPendingName(ctx context.Context, name string) error {
	return s.Set(ctx, keyPendingName, name)
}

// PendingName returns the stashed registration name, or "".
func (s *Store) PendingName(ctx context.Context) (string, error) {
	name, _, err := s.Get(ctx, keyPendingName)
	return name, err
}

func (s *Store) ClearPendingName(ctx context.Context) error {
	return s.Delete(ctx, keyPendingName)
}
