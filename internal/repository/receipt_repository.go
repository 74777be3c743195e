package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/model"
)

// ReceiptRepo reserves OR numbers. The primary key on or_number is what
// makes a number unique; Exists is only a cheap pre-check.
type ReceiptRepo struct {
	db *sql.DB
}

func NewReceiptRepo(db *sql.DB) *ReceiptRepo { return &ReceiptRepo{db: db} }

// Exists reports whether the OR number was already issued or used by a
// payment.
func (r *ReceiptRepo) Exists(ctx context.Context, orNumber string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM receipts WHERE or_number = ?)
	               OR EXISTS(SELECT 1 FROM payments WHERE or_number = ?)`
	var ok bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, orNumber, orNumber).Scan(&ok)
	return ok, err
}

// Reserve inserts the receipt row. ErrDuplicate means the number is taken.
func (r *ReceiptRepo) Reserve(ctx context.Context, rc model.Receipt) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO receipts (or_number, rental_id, user_id) VALUES (?, ?, ?)`,
		rc.ORNumber, rc.RentalID, rc.UserID)
	return translate(err)
}

// Get retrieves a receipt by OR number.
func (r *ReceiptRepo) Get(ctx context.Context, orNumber string) (model.Receipt, error) {
	var rc model.Receipt
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT or_number, rental_id, user_id, created_at FROM receipts WHERE or_number = ?`, orNumber).
		Scan(&rc.ORNumber, &rc.RentalID, &rc.UserID, &rc.CreatedAt)
	return rc, translate(err)
}
