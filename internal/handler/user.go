package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/service"
)

// UserService manages staff accounts.
type UserService interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id uint64) (model.User, error)
	Create(ctx context.Context, in service.UserInput) (model.User, error)
	Update(ctx context.Context, id uint64, in service.UserInput) (model.User, error)
	UpdateAccount(ctx context.Context, id uint64, in service.AccountUpdate) (model.User, error)
	Delete(ctx context.Context, id, actorID uint64) error
}

// UserHandler serves /v1/me for every caller and /v1/users for admins.
type UserHandler struct {
	base
	svc UserService
}

func NewUserHandler(svc UserService, log *zap.Logger, timeout time.Duration) *UserHandler {
	return &UserHandler{base: newBase(log, timeout), svc: svc}
}

type createUserReq struct {
	Fullname string `json:"fullname" validate:"required,max=100"`
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=Admin Employee admin employee"`
	Active   *bool  `json:"is_active"`
}

type updateUserReq struct {
	Fullname *string `json:"fullname" validate:"omitempty,max=100"`
	Username *string `json:"username" validate:"omitempty,max=50"`
	Password string  `json:"password" validate:"omitempty,min=6"`
	Role     *string `json:"role" validate:"omitempty,oneof=Admin Employee admin employee"`
	Active   *bool   `json:"is_active"`
}

// updateAccountReq changes the caller's own account. new_password needs
// the current password.
type updateAccountReq struct {
	Fullname    *string `json:"fullname" validate:"omitempty,max=100"`
	Username    *string `json:"username" validate:"omitempty,max=50"`
	Password    string  `json:"password"`
	NewPassword string  `json:"new_password" validate:"omitempty,min=6"`
}

// Me returns the caller's account.
func (h *UserHandler) Me(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.svc.Get(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe applies a self-service account change.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req updateAccountReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.svc.UpdateAccount(ctx, uid, service.AccountUpdate{
		Fullname:        req.Fullname,
		Username:        req.Username,
		CurrentPassword: req.Password,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	users, err := h.svc.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.svc.Create(ctx, service.UserInput{
		Fullname: &req.Fullname,
		Username: &req.Username,
		Password: req.Password,
		Role:     &req.Role,
		Active:   req.Active,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Update(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	var req updateUserReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.svc.Update(ctx, id, service.UserInput{
		Fullname: req.Fullname,
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Active:   req.Active,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	actor, err := callerID(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.Delete(ctx, id, actor); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
