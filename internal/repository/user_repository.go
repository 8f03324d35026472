package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/D191001/libra/internal/model"
	"github.com/D191001/libra/internal/utils"
)

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// NormalizeUsername trims surrounding space.  Usernames are compared by the
// column collation, which is case-insensitive.
func NormalizeUsername(s string) string { return strings.TrimSpace(s) }

// Create hashes password and inserts the user.
func (r *UserRepo) Create(ctx context.Context, username, password string, isAdmin bool, cost int) (model.User, error) {
	username = NormalizeUsername(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO users (username, hashed_password, is_admin) VALUES (?, ?, ?)",
		username, hash, isAdmin)
	if err != nil {
		if mysqlCode(err) == mysqlDuplicateEntry {
			return model.User{}, model.ErrUsernameTaken
		}
		return model.User{}, storageErr("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, storageErr("create user id", err)
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &u,
		"SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", NormalizeUsername(username))
	if err != nil {
		return model.User{}, notFoundOr("get user by username", err, model.ErrUserNotFound)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &u,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	if err != nil {
		return model.User{}, notFoundOr("get user", err, model.ErrUserNotFound)
	}
	return u, nil
}

// UpdateProfile changes the username and, when password is not empty, the
// password.  An empty username keeps the current one.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, username, password string, cost int) (model.User, error) {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if u := NormalizeUsername(username); u != "" {
		sets = append(sets, "username = ?")
		args = append(args, u)
	}
	if password != "" {
		hash, err := utils.HashPassword(password, cost)
		if err != nil {
			return model.User{}, err
		}
		sets = append(sets, "hashed_password = ?")
		args = append(args, hash)
	}
	if len(sets) > 0 {
		args = append(args, id)
		_, err := conn(ctx, r.db).ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			if mysqlCode(err) == mysqlDuplicateEntry {
				return model.User{}, model.ErrUsernameTaken
			}
			return model.User{}, storageErr("update user", err)
		}
	}
	return r.GetByID(ctx, id)
}

// SetFlags updates the admin and active flags of a user.
func (r *UserRepo) SetFlags(ctx context.Context, id uint64, isAdmin, isActive bool) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE users SET is_admin = ?, is_active = ? WHERE id = ?", isAdmin, isActive, id)
	return storageErr("set user flags", err)
}
