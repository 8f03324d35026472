package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/model"
)

// EnsureAdmin makes sure an active admin named username exists, creating
// it with password when missing.  An existing user keeps its password.
// Empty credentials disable the bootstrap.
func EnsureAdmin(ctx context.Context, l *zap.Logger, users UserStore, username, password string, cost int) error {
	if username == "" || password == "" {
		return nil
	}

	u, err := users.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		u, err = users.Create(ctx, username, password, true, cost)
		if errors.Is(err, model.ErrUsernameTaken) {
			u, err = users.GetByUsername(ctx, username)
		} else if err == nil {
			logger.MakeInfo(l, "admin user created", zap.String("username", u.Username), zap.Uint64("user_id", u.ID))
			return nil
		}
	}
	if err != nil {
		return err
	}

	if u.IsAdmin && u.IsActive {
		return nil
	}
	if err := users.SetFlags(ctx, u.ID, true, true); err != nil {
		return err
	}
	logger.MakeInfo(l, "admin flags restored", zap.String("username", u.Username), zap.Uint64("user_id", u.ID))
	return nil
}
