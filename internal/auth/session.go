package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

// DefaultSessionLifetime applies when no lifetime is configured.
const DefaultSessionLifetime = 24 * time.Hour

const sessionKeyUserID = "user_id"

// SessionStore maps opaque session keys to user ids. The backing scs.Store
// decides where the data lives; the payload is scs-encoded so the same rows
// can be read by an scs.SessionManager.
type SessionStore struct {
	store    scs.Store
	codec    scs.Codec
	lifetime time.Duration
	now      func() time.Time
}

func NewSessionStore(store scs.Store, lifetime time.Duration) *SessionStore {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionStore{
		store:    store,
		codec:    scs.GobCodec{},
		lifetime: lifetime,
		now:      time.Now,
	}
}

// NewMemoryBackend returns an in-process store for single-instance deployments.
func NewMemoryBackend() *memstore.MemStore {
	return memstore.New()
}

// NewSQLiteBackend creates the sessions table when needed and returns a
// store shared by every process that opens the same database file.
func NewSQLiteBackend(db *sql.DB) (*sqlite3store.SQLite3Store, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry)`); err != nil {
		return nil, fmt.Errorf("create sessions index: %w", err)
	}
	return sqlite3store.New(db), nil
}

// Create starts a new session for userID and returns its key.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	key, err := newSessionKey()
	if err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}

	expiry := s.now().Add(s.lifetime).UTC()
	data, err := s.codec.Encode(expiry, map[string]interface{}{
		sessionKeyUserID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	if err := s.commit(ctx, key, data, expiry); err != nil {
		return "", fmt.Errorf("commit session: %w", err)
	}
	return key, nil
}

// Resolve returns the user id bound to key. Unknown, expired or unreadable
// sessions report ok=false without an error; only store failures error.
func (s *SessionStore) Resolve(ctx context.Context, key string) (int64, bool, error) {
	if key == "" {
		return 0, false, nil
	}

	data, found, err := s.find(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("find session: %w", err)
	}
	if !found {
		return 0, false, nil
	}

	deadline, values, err := s.codec.Decode(data)
	if err != nil {
		return 0, false, nil
	}
	if !s.now().Before(deadline) {
		return 0, false, nil
	}

	userID, ok := values[sessionKeyUserID].(int64)
	if !ok || userID <= 0 {
		return 0, false, nil
	}
	return userID, true, nil
}

// Destroy removes the session. Destroying an unknown key is not an error.
func (s *SessionStore) Destroy(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	var err error
	if cs, ok := s.store.(scs.CtxStore); ok {
		err = cs.DeleteCtx(ctx, key)
	} else {
		err = s.store.Delete(key)
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Lifetime is how long a new session stays valid.
func (s *SessionStore) Lifetime() time.Duration {
	return s.lifetime
}

func (s *SessionStore) find(ctx context.Context, key string) ([]byte, bool, error) {
	if cs, ok := s.store.(scs.CtxStore); ok {
		return cs.FindCtx(ctx, key)
	}
	return s.store.Find(key)
}

func (s *SessionStore) commit(ctx context.Context, key string, data []byte, expiry time.Time) error {
	if cs, ok := s.store.(scs.CtxStore); ok {
		return cs.CommitCtx(ctx, key, data, expiry)
	}
	return s.store.Commit(key, data, expiry)
}

func newSessionKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
