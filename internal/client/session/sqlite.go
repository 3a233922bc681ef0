package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/folio/internal/client/migrations"
	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/cryptox"
	"github.com/dmitrijs2005/folio/internal/dbx"
	"github.com/dmitrijs2005/folio/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// ErrSealed is returned by Load when the stored token was sealed and the
// store has no passphrase to open it.
var ErrSealed = errors.New("stored session is sealed")

// SQLiteStore keeps the envelope in a single-row table so a restarted CLI
// can resume its session. With a passphrase the access token is sealed
// at rest.
type SQLiteStore struct {
	db         dbx.DBTX
	passphrase []byte
}

type SQLiteOption func(*SQLiteStore)

// WithPassphrase seals saved tokens with cryptox. An empty passphrase
// leaves tokens in plain text.
func WithPassphrase(p string) SQLiteOption {
	return func(s *SQLiteStore) {
		if p != "" {
			s.passphrase = []byte(p)
		}
	}
}

func NewSQLiteStore(db dbx.DBTX, opts ...SQLiteOption) *SQLiteStore {
	s := &SQLiteStore{db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RunMigrations applies the embedded client schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenSQLite opens (creating if needed) the session database at dsn and
// migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if isFilePath(dsn) {
		if err := filex.EnsureParentDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func isFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:")
}

func (s *SQLiteStore) Load(ctx context.Context) (Envelope, error) {
	var (
		e                  Envelope
		token              []byte
		sealed             bool
		expires, createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, sealed, user_id, username, email, expires_at, created_at FROM session WHERE id = 1`,
	).Scan(&token, &sealed, &e.Identity.ID, &e.Identity.Username, &e.Identity.Email, &expires, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Envelope{}, common.ErrNoSession
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to load session: %w", err)
	}

	if sealed {
		if s.passphrase == nil {
			return Envelope{}, ErrSealed
		}
		if token, err = cryptox.Open(s.passphrase, token); err != nil {
			return Envelope{}, fmt.Errorf("failed to open session token: %w", err)
		}
	}

	e.AccessToken = string(token)
	e.ExpiresAt = time.Unix(expires, 0)
	e.CreatedAt = time.Unix(createdAt, 0)
	return e, nil
}

func (s *SQLiteStore) Save(ctx context.Context, e Envelope) error {
	token, sealed := []byte(e.AccessToken), 0
	if s.passphrase != nil {
		var err error
		if token, err = cryptox.Seal(s.passphrase, token); err != nil {
			return fmt.Errorf("failed to seal session token: %w", err)
		}
		sealed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, access_token, sealed, user_id, username, email, expires_at, created_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			sealed = excluded.sealed,
			user_id = excluded.user_id,
			username = excluded.username,
			email = excluded.email,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`, token, sealed, e.Identity.ID, e.Identity.Username, e.Identity.Email, e.ExpiresAt.Unix(), e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
