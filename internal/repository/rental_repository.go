package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/model"
)

// RentalRepo provides data access for rentals.
type RentalRepo struct {
	db *sql.DB
}

func NewRentalRepo(db *sql.DB) *RentalRepo { return &RentalRepo{db: db} }

const rentalColumns = `r.id, r.vendor_id, r.stall_id, r.start_date, r.end_date, r.ban_amount_cents, r.ban_paid_cents, r.version, r.created_at, r.updated_at`

func scanRental(s scanner, rt *model.Rental, extra ...any) error {
	var end sql.NullTime
	dest := append([]any{&rt.ID, &rt.VendorID, &rt.StallID, &rt.StartDate, &end,
		&rt.BanAmountCents, &rt.BanPaidCents, &rt.Version, &rt.CreatedAt, &rt.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	rt.EndDate = timePtr(end)
	return nil
}

func (r *RentalRepo) queryRentals(ctx context.Context, q string, args ...any) ([]model.Rental, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Rental{}
	for rows.Next() {
		var rt model.Rental
		if err := scanRental(rows, &rt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// Create inserts a rental and populates its ID and version.
func (r *RentalRepo) Create(ctx context.Context, rt *model.Rental) error {
	const q = `INSERT INTO rentals (vendor_id, stall_id, start_date, ban_amount_cents, ban_paid_cents)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		rt.VendorID, rt.StallID, rt.StartDate, rt.BanAmountCents, rt.BanPaidCents)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	rt.Version = 1
	return nil
}

// GetByID retrieves a rental by id.
func (r *RentalRepo) GetByID(ctx context.Context, id uint64) (model.Rental, error) {
	const q = `SELECT ` + rentalColumns + ` FROM rentals r WHERE r.id = ?`
	var rt model.Rental
	err := scanRental(database.Conn(ctx, r.db).QueryRowContext(ctx, q, id), &rt)
	return rt, translate(err)
}

// GetForUpdate retrieves a rental and locks its row until the surrounding
// transaction ends.
func (r *RentalRepo) GetForUpdate(ctx context.Context, id uint64) (model.Rental, error) {
	const q = `SELECT ` + rentalColumns + ` FROM rentals r WHERE r.id = ? FOR UPDATE`
	var rt model.Rental
	err := scanRental(database.Conn(ctx, r.db).QueryRowContext(ctx, q, id), &rt)
	return rt, translate(err)
}

// List returns every rental with vendor name and stall number, newest first.
func (r *RentalRepo) List(ctx context.Context) ([]model.RentalView, error) {
	const q = `SELECT ` + rentalColumns + `, v.name, st.number
	           FROM rentals r
	           JOIN vendors v ON v.id = r.vendor_id
	           JOIN stalls st ON st.id = r.stall_id
	           ORDER BY r.start_date DESC, r.id DESC`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.RentalView{}
	for rows.Next() {
		var v model.RentalView
		if err := scanRental(rows, &v.Rental, &v.VendorName, &v.StallNumber); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListActive returns rentals without an end date.
func (r *RentalRepo) ListActive(ctx context.Context) ([]model.Rental, error) {
	return r.queryRentals(ctx, `SELECT `+rentalColumns+` FROM rentals r WHERE r.end_date IS NULL`)
}

// HasActiveForStall reports whether the stall has an active rental other
// than exceptID.
func (r *RentalRepo) HasActiveForStall(ctx context.Context, stallID, exceptID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM rentals WHERE stall_id = ? AND end_date IS NULL AND id <> ?)`
	var ok bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, stallID, exceptID).Scan(&ok)
	return ok, err
}

// Update overwrites vendor, stall and start date, bumping the version.
func (r *RentalRepo) Update(ctx context.Context, rt *model.Rental) error {
	const q = `UPDATE rentals
	           SET vendor_id = ?, stall_id = ?, start_date = ?, version = version + 1,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if err := expectOne(database.Conn(ctx, r.db).ExecContext(ctx, q, rt.VendorID, rt.StallID, rt.StartDate, rt.ID)); err != nil {
		return err
	}
	rt.Version++
	return nil
}

// UpdateBanPaid stores a new ban_paid value if the row still carries the
// expected version. A concurrent writer makes it fail with ErrStale.
func (r *RentalRepo) UpdateBanPaid(ctx context.Context, id uint64, banPaid int64, version uint32) error {
	const q = `UPDATE rentals
	           SET ban_paid_cents = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND version = ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, banPaid, id, version)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// SetEndDate marks a rental as vacated.
func (r *RentalRepo) SetEndDate(ctx context.Context, id uint64, end time.Time) error {
	const q = `UPDATE rentals
	           SET end_date = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, q, end, id))
}

// Delete removes a rental. Payment history is kept.
func (r *RentalRepo) Delete(ctx context.Context, id uint64) error {
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM rentals WHERE id = ?`, id))
}

// DeleteByStall removes all rentals of a stall and returns how many.
func (r *RentalRepo) DeleteByStall(ctx context.Context, stallID uint64) (int64, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM rentals WHERE stall_id = ?`, stallID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteBySection removes the rentals of every stall in a section.
func (r *RentalRepo) DeleteBySection(ctx context.Context, sectionID uint64) (int64, error) {
	const q = `DELETE r FROM rentals r JOIN stalls s ON s.id = r.stall_id WHERE s.section_id = ?`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, sectionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByVendor removes all rentals of a vendor and returns how many.
func (r *RentalRepo) DeleteByVendor(ctx context.Context, vendorID uint64) (int64, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM rentals WHERE vendor_id = ?`, vendorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
