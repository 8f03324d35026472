package model

import "time"

// User represents an application user record as stored in the
// `users` table.  The json tags are omitted because handlers shape
// their own responses and never expose the password hash.
//
// Fields:
//  ID           - primary key identifier of the user.
//  Username     - unique login name.
//  PasswordHash - bcrypt hashed password.
//  IsActive     - inactive users cannot borrow or return books.
//  IsAdmin      - admins manage the catalog and may act for other users.
//  CreatedAt    - timestamp of creation.
//  UpdatedAt    - timestamp of last update.
type User struct {
	ID           uint64    `db:"id"`              // users.id
	Username     string    `db:"username"`        // users.username
	PasswordHash string    `db:"hashed_password"` // users.hashed_password
	IsActive     bool      `db:"is_active"`       // users.is_active
	IsAdmin      bool      `db:"is_admin"`        // users.is_admin
	CreatedAt    time.Time `db:"created_at"`      // users.created_at
	UpdatedAt    time.Time `db:"updated_at"`      // users.updated_at
}

// Caller is the resolved identity of the party making a request.  It is
// produced by the auth middleware from a verified token plus the current
// state of the users row.
type Caller struct {
	UserID   uint64
	IsAdmin  bool
	IsActive bool
}

// CallerFor builds a Caller from a loaded user.
func CallerFor(u User) Caller {
	return Caller{UserID: u.ID, IsAdmin: u.IsAdmin, IsActive: u.IsActive}
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is not stored; only its SHA-256 hash.
//
// Fields:
//  ID        - primary key identifier.
//  UserID    - owner of the token.
//  TokenHash - SHA-256 hex digest of the token value.
//  ExpiresAt - expiration timestamp of the token.
//  RevokedAt - when the token was revoked (null if still active).
//  CreatedAt - timestamp of creation.
type RefreshToken struct {
	ID        uint64     `db:"id"`         // refresh_tokens.id
	UserID    uint64     `db:"user_id"`    // refresh_tokens.user_id
	TokenHash string     `db:"token_hash"` // refresh_tokens.token_hash
	ExpiresAt time.Time  `db:"expires_at"` // refresh_tokens.expires_at
	RevokedAt *time.Time `db:"revoked_at"` // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  `db:"created_at"` // refresh_tokens.created_at
}
