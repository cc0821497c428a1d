package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"winkcloud/auth"
)

// SQLiteStore implements auth.CredentialStore using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite credential store at dbPath (":memory:" is allowed)
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the database schema
func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS wink_credentials (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at DATETIME,
			client_id TEXT NOT NULL,
			client_secret TEXT NOT NULL,
			base_url TEXT NOT NULL,
			auth_path TEXT NOT NULL DEFAULT '',
			tolerance INTEGER,
			user_id TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load retrieves the stored credentials.
// Implements auth.CredentialStore interface
func (s *SQLiteStore) Load(ctx context.Context) (auth.Credentials, error) {
	var creds auth.Credentials
	var expiresAt sql.NullTime
	var tolerance sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expires_at, client_id, client_secret,
			base_url, auth_path, tolerance, user_id, username
		FROM wink_credentials WHERE id = 1
	`).Scan(&creds.AccessToken, &creds.RefreshToken, &expiresAt, &creds.ClientID, &creds.ClientSecret,
		&creds.BaseURL, &creds.AuthPath, &tolerance, &creds.UserID, &creds.Username)

	if err == sql.ErrNoRows {
		return auth.Credentials{}, auth.ErrNoCredentials
	}
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	if expiresAt.Valid {
		expires := expiresAt.Time.UTC()
		creds.Expires = &expires
	}
	if tolerance.Valid {
		t := int(tolerance.Int64)
		creds.Tolerance = &t
	}

	return creds, nil
}

// Save saves or updates the credentials.
// Implements auth.CredentialStore interface
func (s *SQLiteStore) Save(ctx context.Context, creds auth.Credentials) error {
	now := time.Now().UTC()

	var expiresAt sql.NullTime
	if creds.Expires != nil {
		expiresAt = sql.NullTime{Time: creds.Expires.UTC(), Valid: true}
	}
	var tolerance sql.NullInt64
	if creds.Tolerance != nil {
		tolerance = sql.NullInt64{Int64: int64(*creds.Tolerance), Valid: true}
	}

	// Check if credentials exist
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM wink_credentials WHERE id = 1)").Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check credentials: %w", err)
	}

	if exists {
		_, err = s.db.ExecContext(ctx, `
			UPDATE wink_credentials
			SET access_token = ?, refresh_token = ?, expires_at = ?, client_id = ?, client_secret = ?,
				base_url = ?, auth_path = ?, tolerance = ?, user_id = ?, username = ?, updated_at = ?
			WHERE id = 1
		`, creds.AccessToken, creds.RefreshToken, expiresAt, creds.ClientID, creds.ClientSecret,
			creds.BaseURL, creds.AuthPath, tolerance, creds.UserID, creds.Username, now)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO wink_credentials (id, access_token, refresh_token, expires_at, client_id, client_secret,
				base_url, auth_path, tolerance, user_id, username, created_at, updated_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, creds.AccessToken, creds.RefreshToken, expiresAt, creds.ClientID, creds.ClientSecret,
			creds.BaseURL, creds.AuthPath, tolerance, creds.UserID, creds.Username, now, now)
	}
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
