package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/config"
	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/repository"
	"github.com/iliyamo/stall-rental/internal/service"
	"github.com/iliyamo/stall-rental/internal/utils"
)

// Authenticator checks credentials and loads accounts.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (model.User, error)
	Get(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	base
	Cfg    config.Config
	Users  Authenticator
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u Authenticator, t TokenStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{base: newBase(log, cfg.RequestTimeout), Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// issue signs an access token and stores a fresh refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Login: verify credentials and return a new token pair. Inactive accounts
// are refused.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.Users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := h.ctx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return h.fail(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return h.fail(c, err)
	}

	u, err := h.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return h.fail(c, err)
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the caller when only a valid bearer token is present.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			uid, _ = claims.UserID()
		}
	}

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := h.ctx(c)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrTokenInvalid) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
			}
			return h.fail(c, err)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return h.fail(c, err)
		}
	case uid != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return h.fail(c, err)
		}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token or bearer token required"})
	}
	return c.NoContent(http.StatusNoContent)
}
