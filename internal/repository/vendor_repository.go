package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/model"
)

// VendorRepo provides data access for vendors.
type VendorRepo struct {
	db *sql.DB
}

// NewVendorRepo constructs a VendorRepo with the given DB handle.
func NewVendorRepo(db *sql.DB) *VendorRepo { return &VendorRepo{db: db} }

const vendorColumns = `v.id, v.name, v.owner, v.birthdate, v.type, v.address, v.contact, v.created_at, v.updated_at`

func scanVendor(s scanner, v *model.Vendor, extra ...any) error {
	var birth sql.NullTime
	dest := append([]any{&v.ID, &v.Name, &v.Owner, &birth, &v.Type, &v.Address, &v.Contact, &v.CreatedAt, &v.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	v.Birthdate = timePtr(birth)
	return nil
}

// Create inserts a vendor and populates its ID. A name that differs only
// in case from an existing one yields ErrDuplicate.
func (r *VendorRepo) Create(ctx context.Context, v *model.Vendor) error {
	const q = `INSERT INTO vendors (name, name_key, owner, birthdate, type, address, contact)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		v.Name, model.NormalizeKey(v.Name), v.Owner, nullTime(v.Birthdate), v.Type, v.Address, v.Contact)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// GetByID retrieves a vendor by id.
func (r *VendorRepo) GetByID(ctx context.Context, id uint64) (model.Vendor, error) {
	const q = `SELECT ` + vendorColumns + ` FROM vendors v WHERE v.id = ?`
	var v model.Vendor
	err := scanVendor(database.Conn(ctx, r.db).QueryRowContext(ctx, q, id), &v)
	return v, translate(err)
}

// List returns all vendors ordered by name with a flag telling whether the
// vendor holds an active rental.
func (r *VendorRepo) List(ctx context.Context) ([]model.VendorView, error) {
	const q = `SELECT ` + vendorColumns + `,
	                  EXISTS(SELECT 1 FROM rentals x WHERE x.vendor_id = v.id AND x.end_date IS NULL)
	           FROM vendors v
	           ORDER BY v.name_key`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.VendorView{}
	for rows.Next() {
		var vv model.VendorView
		if err := scanVendor(rows, &vv.Vendor, &vv.HasRental); err != nil {
			return nil, err
		}
		out = append(out, vv)
	}
	return out, rows.Err()
}

// Update overwrites the mutable vendor fields.
func (r *VendorRepo) Update(ctx context.Context, v *model.Vendor) error {
	const q = `UPDATE vendors
	           SET name = ?, name_key = ?, owner = ?, birthdate = ?, type = ?, address = ?, contact = ?,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, q,
		v.Name, model.NormalizeKey(v.Name), v.Owner, nullTime(v.Birthdate), v.Type, v.Address, v.Contact, v.ID))
}

// Delete removes a vendor row. Callers delete the vendor's rentals first.
func (r *VendorRepo) Delete(ctx context.Context, id uint64) error {
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id))
}
