package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/model"
)

// PaymentRepo provides data access for payments.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, rental_id, user_id, cost_cents, amount_cents, paid_for, or_number, created_at, updated_at`

func scanPayment(s scanner, p *model.Payment) error {
	return s.Scan(&p.ID, &p.RentalID, &p.UserID, &p.CostCents, &p.AmountCents, &p.PaidFor, &p.ORNumber, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PaymentRepo) queryPayments(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountByRental returns how many payments a rental has.
func (r *PaymentRepo) CountByRental(ctx context.Context, rentalID uint64) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE rental_id = ?`, rentalID).Scan(&n)
	return n, err
}

// InsertBatch inserts all payments in a single statement so the batch is
// stored completely or not at all.
func (r *PaymentRepo) InsertBatch(ctx context.Context, payments []model.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	query := `INSERT INTO payments (rental_id, user_id, cost_cents, amount_cents, paid_for, or_number) VALUES `
	args := make([]any, 0, len(payments)*6)
	for i, p := range payments {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, p.RentalID, p.UserID, p.CostCents, p.AmountCents, p.PaidFor, p.ORNumber)
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	return translate(err)
}

// GetByID retrieves a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	var p model.Payment
	err := scanPayment(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id), &p)
	return p, translate(err)
}

// List returns payments ordered by rental and date. A zero rentalID lists
// every payment.
func (r *PaymentRepo) List(ctx context.Context, rentalID uint64) ([]model.Payment, error) {
	if rentalID == 0 {
		return r.queryPayments(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY rental_id, paid_for, id`)
	}
	return r.queryPayments(ctx, `SELECT `+paymentColumns+` FROM payments WHERE rental_id = ? ORDER BY paid_for, id`, rentalID)
}

// ListByORNumber returns the payments of one receipt.
func (r *PaymentRepo) ListByORNumber(ctx context.Context, orNumber string) ([]model.Payment, error) {
	return r.queryPayments(ctx, `SELECT `+paymentColumns+` FROM payments WHERE or_number = ? ORDER BY paid_for, id`, orNumber)
}

// Update overwrites cost, amount and date of a payment.
func (r *PaymentRepo) Update(ctx context.Context, p *model.Payment) error {
	const q = `UPDATE payments
	           SET cost_cents = ?, amount_cents = ?, paid_for = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, q, p.CostCents, p.AmountCents, p.PaidFor, p.ID))
}

// Delete removes a payment.
func (r *PaymentRepo) Delete(ctx context.Context, id uint64) error {
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id))
}
