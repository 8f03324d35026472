package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/D191001/libra/internal/model"
)

// TokenRepo persists and validates refresh tokens.  Only the SHA-256 hash
// of a token is stored.
type TokenRepo struct{ db *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, tokenHash, exp)
	return storageErr("store refresh token", err)
}

// ValidateRefresh returns the owner of a non-revoked, non-expired token.
// Unknown, revoked and expired tokens all yield model.ErrUnauthorized.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var t model.RefreshToken
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &t,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1",
		tokenHash)
	if err != nil {
		return 0, notFoundOr("validate refresh token", err, model.ErrUnauthorized)
	}
	if t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return 0, model.ErrUnauthorized
	}
	return t.UserID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL",
		tokenHash)
	return storageErr("revoke refresh token", err)
}

// RevokeAllForUser revokes all of a user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE user_id = ? AND revoked_at IS NULL",
		userID)
	return storageErr("revoke refresh tokens", err)
}
