// Package identity persists local accounts and the sign-in audit trail.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEmailTaken is returned when registration collides with an existing
// account.
var ErrEmailTaken = errors.New("identity: email already registered")

// ErrNotFound is returned for lookups that match no user.
var ErrNotFound = errors.New("identity: user not found")

// User is a locally registered account. Hosted-provider users get a row too,
// keyed by their provider subject in HostedSubject, so both identity sources
// share one ledger owner id.
type User struct {
	ID            uuid.UUID
	Email         string
	Name          string
	PasswordHash  string
	HostedSubject *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store provides identity lookups/mutations against the users schema.
type Store struct {
	pg *pgxpool.Pool
}

func NewStore(pg *pgxpool.Pool) *Store {
	return &Store{pg: pg}
}

// Create inserts a new local account. The password hash must already be
// computed; this layer never sees plaintext.
func (s *Store) Create(ctx context.Context, email, name, passwordHash string) (*User, error) {
	email = normalizeEmail(email)
	u := &User{ID: uuid.New(), Email: email, Name: strings.TrimSpace(name), PasswordHash: passwordHash}
	_, err := s.pg.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.Name, u.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// GetByEmail returns the account for a login attempt.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, hosted_subject, created_at, updated_at
		FROM users WHERE email = $1 LIMIT 1`, normalizeEmail(email))
}

// GetByID returns the account by primary key.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, hosted_subject, created_at, updated_at
		FROM users WHERE id = $1 LIMIT 1`, id)
}

func (s *Store) get(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.pg.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.HostedSubject, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertHosted links a hosted-provider identity to a local row, creating it
// on first login. Matching is by hosted subject first, then by email.
func (s *Store) UpsertHosted(ctx context.Context, hostedSubject, email, name string) (*User, error) {
	email = normalizeEmail(email)
	var u User
	err := s.pg.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, hosted_subject)
		VALUES ($1, $2, $3, '', $4)
		ON CONFLICT (email) DO UPDATE
			SET hosted_subject = EXCLUDED.hosted_subject, updated_at = NOW()
		RETURNING id, email, name, password_hash, hosted_subject, created_at, updated_at`,
		uuid.New(), email, strings.TrimSpace(name), hostedSubject).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.HostedSubject, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePasswordHash replaces the stored hash (used to upgrade legacy bcrypt
// hashes after a successful login).
func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := s.pg.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeriveName produces a display name when registration omits one: the email
// local part, cleaned up.
func DeriveName(email, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	local := email
	if i := strings.IndexByte(local, '@'); i > 0 {
		local = local[:i]
	}
	return strings.TrimSpace(local)
}
