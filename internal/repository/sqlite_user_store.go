package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/pkg/util"
)

// SQLiteUserStore keeps accounts in a single-file database that the backup
// job ships to object storage.
type SQLiteUserStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteUserStore opens or creates the database at path. ":memory:"
// gives a throwaway store.
func NewSQLiteUserStore(path string) (*SQLiteUserStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users database: %w", err)
	}
	// single writer; rollback journal so the file alone is a full backup
	db.SetMaxOpenConns(1)
	return &SQLiteUserStore{db: db, path: path}, nil
}

func (s *SQLiteUserStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// Create inserts u and fills in its ID and creation time.
func (s *SQLiteUserStore) Create(ctx context.Context, u *models.User) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email = ?`, u.Email).Scan(&exists)
	switch {
	case err == nil:
		return domrepo.ErrEmailTaken
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check email: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domrepo.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	stored, err := s.ByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	u.CreatedAt = stored.CreatedAt
	return nil
}

func (s *SQLiteUserStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var (
		u       models.User
		created sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, strftime('%Y-%m-%d %H:%M:%S', created_at)
		FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if created.Valid {
		if t, err := util.ParseTimestamp(created.String, time.UTC); err == nil {
			u.CreatedAt = t
		}
	}
	return &u, nil
}

func (s *SQLiteUserStore) Path() string { return s.path }

func (s *SQLiteUserStore) Close() error { return s.db.Close() }
