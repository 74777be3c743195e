package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/utils"
)

// ErrUnauthenticated is returned for bad credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
	Delete(ctx context.Context, id uint64) error
}

// Users manages staff accounts.
type Users struct {
	store UserStore
	tx    TxRunner
	cost  int
}

func NewUsers(store UserStore, tx TxRunner, bcryptCost int) *Users {
	return &Users{store: store, tx: tx, cost: bcryptCost}
}

// UserInput carries writable account fields. Nil pointers leave a field
// unchanged on update.
type UserInput struct {
	Fullname *string
	Username *string
	Password string
	Role     *string
	Active   *bool
}

func normalizeRole(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "", "employee":
		return model.RoleEmployee, nil
	case "admin":
		return model.RoleAdmin, nil
	default:
		return "", invalidf("role must be %s or %s", model.RoleAdmin, model.RoleEmployee)
	}
}

func (s *Users) List(ctx context.Context) ([]model.User, error) {
	return s.store.List(ctx)
}

func (s *Users) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.GetByID(ctx, id)
	return u, storeErr(err, "user")
}

// Authenticate checks a username and password. Unknown users, wrong
// passwords and inactive accounts all fail with ErrUnauthenticated.
func (s *Users) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return model.User{}, invalidf("username and password are required")
	}
	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(storeErr(err, "user"), ErrNotFound) {
			return model.User{}, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
		}
		return model.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	if !u.IsActive {
		return model.User{}, fmt.Errorf("%w: account disabled", ErrUnauthenticated)
	}
	return u, nil
}

// Create adds a staff account. Role defaults to Employee and new accounts
// are active unless Active says otherwise.
func (s *Users) Create(ctx context.Context, in UserInput) (model.User, error) {
	if in.Fullname == nil || in.Username == nil || strings.TrimSpace(*in.Fullname) == "" || strings.TrimSpace(*in.Username) == "" {
		return model.User{}, invalidf("fullname and username are required")
	}
	if in.Password == "" {
		return model.User{}, invalidf("password is required")
	}
	role := ""
	if in.Role != nil {
		role = *in.Role
	}
	role, err := normalizeRole(role)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Fullname: strings.TrimSpace(*in.Fullname),
		Username: strings.TrimSpace(*in.Username),
		Role:     role,
		IsActive: in.Active == nil || *in.Active,
	}
	if err := s.store.Create(ctx, &u, in.Password, s.cost); err != nil {
		return model.User{}, storeErr(err, "username")
	}
	return u, nil
}

// Update changes an account as an administrator. Profile and password are
// written in one transaction.
func (s *Users) Update(ctx context.Context, id uint64, in UserInput) (model.User, error) {
	var u model.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if u, err = s.store.GetByID(ctx, id); err != nil {
			return storeErr(err, "user")
		}
		if err := applyProfile(&u, in); err != nil {
			return err
		}
		if in.Role != nil {
			if u.Role, err = normalizeRole(*in.Role); err != nil {
				return err
			}
		}
		if in.Active != nil {
			u.IsActive = *in.Active
		}
		if err := s.store.Update(ctx, &u); err != nil {
			return storeErr(err, "username")
		}
		if in.Password != "" {
			return storeErr(s.store.UpdatePassword(ctx, id, in.Password, s.cost), "user")
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// AccountUpdate is a user's change to their own account. Changing the
// password requires the current one.
type AccountUpdate struct {
	Fullname        *string
	Username        *string
	CurrentPassword string
	NewPassword     string
}

// UpdateAccount applies a self-service change. The current password must be
// supplied before it is compared with the stored hash.
func (s *Users) UpdateAccount(ctx context.Context, id uint64, in AccountUpdate) (model.User, error) {
	var u model.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if u, err = s.store.GetByID(ctx, id); err != nil {
			return storeErr(err, "user")
		}
		if in.NewPassword != "" {
			if in.CurrentPassword == "" {
				return invalidf("current password is required")
			}
			if !utils.VerifyPassword(u.PasswordHash, in.CurrentPassword) {
				return invalidf("current password does not match")
			}
		}
		if err := applyProfile(&u, UserInput{Fullname: in.Fullname, Username: in.Username}); err != nil {
			return err
		}
		if err := s.store.Update(ctx, &u); err != nil {
			return storeErr(err, "username")
		}
		if in.NewPassword != "" {
			return storeErr(s.store.UpdatePassword(ctx, id, in.NewPassword, s.cost), "user")
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func applyProfile(u *model.User, in UserInput) error {
	if in.Fullname != nil {
		v := strings.TrimSpace(*in.Fullname)
		if v == "" {
			return invalidf("fullname must not be empty")
		}
		u.Fullname = v
	}
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		if v == "" {
			return invalidf("username must not be empty")
		}
		u.Username = v
	}
	return nil
}

// Delete removes an account. Users cannot delete themselves.
func (s *Users) Delete(ctx context.Context, id, actorID uint64) error {
	if id == actorID {
		return invalidf("cannot delete your own account")
	}
	return storeErr(s.store.Delete(ctx, id), "user")
}
