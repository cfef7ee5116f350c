package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository persists the backend bearer token of each browser session
// in PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewSessionRepository(pool *pgxpool.Pool, ttl time.Duration) *SessionRepository {
	return &SessionRepository{pool: pool, ttl: ttl}
}

func (r *SessionRepository) Load(ctx context.Context, sessionID string) (string, error) {
	var token string
	err := r.pool.QueryRow(ctx,
		`SELECT access_token FROM browser_sessions
		 WHERE session_id = $1 AND expires_at > now()`, sessionID).Scan(&token)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session token: %w", err)
	}
	return token, nil
}

func (r *SessionRepository) Save(ctx context.Context, sessionID string, token string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO browser_sessions (session_id, access_token, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE
		 SET access_token = EXCLUDED.access_token,
		     updated_at = EXCLUDED.updated_at,
		     expires_at = EXCLUDED.expires_at`,
		sessionID, token, now, now.Add(r.ttl))
	if err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM browser_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}

func (r *SessionRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM browser_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
