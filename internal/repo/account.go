package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskr/internal/model"
)

// Credentials is the stored password material of a user.
type Credentials struct {
	Hash []byte
	Salt []byte
}

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const userColumns = `id, name, email, status, email_verification, phone_verification, created_at, updated_at`

func scanUser(row pgx.Row, extra ...any) (model.User, error) {
	var u model.User
	dest := append([]any{&u.ID, &u.Name, &u.Email, &u.Status, &u.EmailVerification, &u.PhoneVerification, &u.CreatedAt, &u.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	return u, mapError(err)
}

func (r *AccountRepo) CreateUser(ctx context.Context, id, name, email string, cred Credentials) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, salt)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		id, name, email, cred.Hash, cred.Salt,
	))
}

func (r *AccountRepo) UserByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UserByEmail also returns the stored credentials for verification.
func (r *AccountRepo) UserByEmail(ctx context.Context, email string) (model.User, Credentials, error) {
	var cred Credentials
	u, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`, password_hash, salt
		FROM users
		WHERE email = $1
	`, email), &cred.Hash, &cred.Salt)
	return u, cred, err
}

// CreateSession stores a session under the hash of its secret.
func (r *AccountRepo) CreateSession(ctx context.Context, s model.Session, secretHash string) (model.Session, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, secret_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, s.ID, s.UserID, secretHash, s.ExpiresAt).Scan(&s.CreatedAt)
	return s, mapError(err)
}

// SessionUser resolves an unexpired session to its user.
func (r *AccountRepo) SessionUser(ctx context.Context, secretHash string, now time.Time) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.status, u.email_verification, u.phone_verification, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.secret_hash = $1 AND s.expires_at > $2
	`, secretHash, now))
}

func (r *AccountRepo) DeleteSession(ctx context.Context, secretHash string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE secret_hash = $1`, secretHash)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

// DeleteExpiredSessions removes sessions and recoveries past their expiry.
func (r *AccountRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
		if err != nil {
			return err
		}
		removed += cmd.RowsAffected()
		cmd, err = tx.Exec(ctx, `DELETE FROM recoveries WHERE expires_at <= $1`, now)
		if err != nil {
			return err
		}
		removed += cmd.RowsAffected()
		return nil
	})
	return removed, mapError(err)
}

func (r *AccountRepo) CreateRecovery(ctx context.Context, t model.Token, secretHash string) (model.Token, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO recoveries (id, user_id, secret_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, t.ID, t.UserID, secretHash, t.ExpiresAt).Scan(&t.CreatedAt)
	return t, mapError(err)
}

// ResetPassword consumes an unexpired recovery of the user and replaces the
// password. All sessions of the user stay valid.
func (r *AccountRepo) ResetPassword(ctx context.Context, userID, secretHash string, now time.Time, cred Credentials) (model.Token, error) {
	var t model.Token
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			DELETE FROM recoveries
			WHERE user_id = $1 AND secret_hash = $2 AND expires_at > $3
			RETURNING id, user_id, created_at, expires_at
		`, userID, secretHash, now).Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET password_hash = $2, salt = $3, updated_at = now() WHERE id = $1
		`, userID, cred.Hash, cred.Salt)
		return err
	})
	return t, mapError(err)
}
