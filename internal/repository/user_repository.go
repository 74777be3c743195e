package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, fullname, username, password_hash, role, is_active, created_at, updated_at`

func scanUser(s scanner, u *model.User) error {
	return s.Scan(&u.ID, &u.Fullname, &u.Username, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// Create hashes the password, inserts the user and populates its ID.
// A username that differs only in case from an existing one yields
// ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := database.Conn(ctx, r.DB).ExecContext(ctx,
		"INSERT INTO users (fullname, username, username_key, password_hash, role, is_active) VALUES (?,?,?,?,?,?)",
		u.Fullname, u.Username, model.NormalizeKey(u.Username), hash, u.Role, u.IsActive)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash
	return nil
}

// GetByUsername fetches a user by username ignoring case.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := scanUser(database.Conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username_key=? LIMIT 1",
		model.NormalizeKey(username)), &u)
	return u, translate(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := scanUser(database.Conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id), &u)
	return u, translate(err)
}

// List returns all users ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := database.Conn(ctx, r.DB).QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username_key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update overwrites fullname, username, role and active flag.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	return expectOne(database.Conn(ctx, r.DB).ExecContext(ctx,
		"UPDATE users SET fullname=?, username=?, username_key=?, role=?, is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		u.Fullname, u.Username, model.NormalizeKey(u.Username), u.Role, u.IsActive, u.ID))
}

// UpdatePassword stores a new bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	return expectOne(database.Conn(ctx, r.DB).ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", hash, id))
}

// Delete removes a user. Refresh tokens go with it through the foreign key.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return expectOne(database.Conn(ctx, r.DB).ExecContext(ctx, "DELETE FROM users WHERE id=?", id))
}
