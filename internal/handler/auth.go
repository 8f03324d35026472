package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/model"
	"github.com/D191001/libra/internal/utils"
)

// AuthConfig holds the token and hashing settings of AuthHandler.
type AuthConfig struct {
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTLDays int
	BcryptCost     int
	Timeout        time.Duration
}

// AuthHandler serves login, token refresh, logout and the user profile.
type AuthHandler struct {
	cfg    AuthConfig
	users  UserStore
	tokens TokenStore
	logger *zap.Logger
}

func NewAuthHandler(cfg AuthConfig, users UserStore, tokens TokenStore, l *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, tokens: tokens, logger: l}
}

type credentialsReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (r *credentialsReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type registerReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *registerReq) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
	)
}

type updateMeReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *updateMeReq) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" && r.Password == "" {
		return errors.New("username or password is required")
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Length(3, 50)),
		validation.Field(&r.Password, validation.Length(6, 72)),
	)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

func (r *refreshReq) Validate() error {
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
	return validation.ValidateStruct(r, validation.Field(&r.RefreshToken, validation.Required))
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	IsActive bool   `json:"is_active"`
	IsAdmin  bool   `json:"is_admin"`
}

func userResponse(u model.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, IsActive: u.IsActive, IsAdmin: u.IsAdmin}
}

// Token exchanges a username and password, sent as a form or JSON, for an
// access and refresh token pair.
func (h *AuthHandler) Token(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.cfg.Timeout)
	defer cancel()

	u, err := h.users.GetByUsername(ctx, req.Username)
	if errors.Is(err, model.ErrUserNotFound) {
		return fail(c, h.logger, model.ErrInvalidCredentials)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, h.logger, model.ErrInvalidCredentials)
	}

	resp, err := h.issuePair(c, u)
	if err != nil {
		return fail(c, h.logger, err)
	}
	logger.MakeInfo(h.logger, "user logged in", zap.Uint64("user_id", u.ID))
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is returned.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.cfg.Timeout)
	defer cancel()

	hash := utils.HashRefreshRaw(req.RefreshToken)
	userID, err := h.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if err := h.tokens.RevokeByHash(ctx, hash); err != nil {
		return fail(c, h.logger, err)
	}
	u, err := h.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return fail(c, h.logger, model.ErrUnauthorized)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}

	resp, err := h.issuePair(c, u)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one refresh token when it is given in the body, or every
// refresh token of the bearer otherwise.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := requestCtx(c, h.cfg.Timeout)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.tokens.ValidateRefresh(ctx, hash); err != nil {
			return fail(c, h.logger, err)
		}
		if err := h.tokens.RevokeByHash(ctx, hash); err != nil {
			return fail(c, h.logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	bearer, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok {
		return fail(c, h.logger, fmt.Errorf("%w: bearer token or refresh_token is required", model.ErrInvalidInput))
	}
	claims, err := utils.ParseAccessToken(h.cfg.JWTSecret, strings.TrimSpace(bearer))
	if err != nil {
		return fail(c, h.logger, model.ErrUnauthorized)
	}
	userID, _ := claims.UserID()
	if err := h.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fail(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Register creates a regular, active user.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.cfg.Timeout)
	defer cancel()

	u, err := h.users.Create(ctx, req.Username, req.Password, false, h.cfg.BcryptCost)
	if err != nil {
		return fail(c, h.logger, err)
	}
	logger.MakeInfo(h.logger, "user registered", zap.Uint64("user_id", u.ID), zap.String("username", u.Username))
	return c.JSON(http.StatusOK, userResponse(u))
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.cfg.Timeout)
	defer cancel()

	u, err := h.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, userResponse(u))
}

// UpdateMe changes the caller's username and/or password.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	var req updateMeReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.cfg.Timeout)
	defer cancel()

	// Empty fields keep their current value
	u, err := h.users.UpdateProfile(ctx, caller.UserID, req.Username, req.Password, h.cfg.BcryptCost)
	if err != nil {
		return fail(c, h.logger, err)
	}
	logger.MakeInfo(h.logger, "user updated", zap.Uint64("user_id", u.ID))
	return c.JSON(http.StatusOK, userResponse(u))
}

func (h *AuthHandler) issuePair(c echo.Context, u model.User) (TokenResponse, error) {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, u.ID, u.IsAdmin, h.cfg.AccessTTL)
	if err != nil {
		return TokenResponse{}, err
	}
	refresh, err := utils.NewRefreshToken(h.cfg.RefreshTTLDays)
	if err != nil {
		return TokenResponse{}, err
	}
	ctx, cancel := requestCtx(c, h.cfg.Timeout)
	defer cancel()
	if err := h.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken:      access.Token,
		TokenType:        "bearer",
		ExpiresAt:        access.Exp,
		RefreshToken:     refresh.Raw,
		RefreshExpiresAt: refresh.Exp,
	}, nil
}
