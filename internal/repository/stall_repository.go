package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/model"
)

// StallRepo provides data access for stalls and the group numbering they
// share.
type StallRepo struct {
	db *sql.DB
}

func NewStallRepo(db *sql.DB) *StallRepo { return &StallRepo{db: db} }

const stallColumns = `st.id, st.section_id, st.group_key, st.number, st.cost_cents, st.ban_deposit_cents, st.notes, st.created_at, st.updated_at`

func scanStall(s scanner, st *model.Stall, extra ...any) error {
	dest := append([]any{&st.ID, &st.SectionID, &st.GroupKey, &st.Number, &st.CostCents,
		&st.BanDepositCents, &st.Notes, &st.CreatedAt, &st.UpdatedAt}, extra...)
	return s.Scan(dest...)
}

// Create inserts a single stall. The number must already be free in the
// group, otherwise ErrDuplicate.
func (r *StallRepo) Create(ctx context.Context, st *model.Stall) error {
	const q = `INSERT INTO stalls (section_id, group_key, number, cost_cents, ban_deposit_cents, notes)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		st.SectionID, st.GroupKey, st.Number, st.CostCents, st.BanDepositCents, st.Notes)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	st.ID = uint64(id)
	return nil
}

// CreateBulk inserts multiple stalls in a single statement.
func (r *StallRepo) CreateBulk(ctx context.Context, stalls []model.Stall) error {
	if len(stalls) == 0 {
		return nil
	}
	query := `INSERT INTO stalls (section_id, group_key, number, cost_cents, ban_deposit_cents, notes) VALUES `
	args := make([]any, 0, len(stalls)*6)
	for i, st := range stalls {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, st.SectionID, st.GroupKey, st.Number, st.CostCents, st.BanDepositCents, st.Notes)
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	return translate(err)
}

// GetByID retrieves a stall by id.
func (r *StallRepo) GetByID(ctx context.Context, id uint64) (model.Stall, error) {
	const q = `SELECT ` + stallColumns + ` FROM stalls st WHERE st.id = ?`
	var st model.Stall
	err := scanStall(database.Conn(ctx, r.db).QueryRowContext(ctx, q, id), &st)
	return st, translate(err)
}

// GetForUpdate retrieves a stall and locks its row until the surrounding
// transaction ends.
func (r *StallRepo) GetForUpdate(ctx context.Context, id uint64) (model.Stall, error) {
	const q = `SELECT ` + stallColumns + ` FROM stalls st WHERE st.id = ? FOR UPDATE`
	var st model.Stall
	err := scanStall(database.Conn(ctx, r.db).QueryRowContext(ctx, q, id), &st)
	return st, translate(err)
}

// List returns stalls joined with their section, ordered by group and
// number. A zero sectionID lists every stall. Availability is left for the
// caller to compute.
func (r *StallRepo) List(ctx context.Context, sectionID uint64) ([]model.StallView, error) {
	q := `SELECT ` + stallColumns + `, s.name, s.group_name
	      FROM stalls st
	      JOIN sections s ON s.id = st.section_id`
	var args []any
	if sectionID != 0 {
		q += ` WHERE st.section_id = ?`
		args = append(args, sectionID)
	}
	q += ` ORDER BY st.group_key, st.number`

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.StallView{}
	for rows.Next() {
		var v model.StallView
		if err := scanStall(rows, &v.Stall, &v.SectionName, &v.Group); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Update overwrites cost, ban deposit default and notes.
func (r *StallRepo) Update(ctx context.Context, st *model.Stall) error {
	const q = `UPDATE stalls
	           SET cost_cents = ?, ban_deposit_cents = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, q, st.CostCents, st.BanDepositCents, st.Notes, st.ID))
}

// Delete removes a stall. Its rentals must be deleted first.
func (r *StallRepo) Delete(ctx context.Context, id uint64) error {
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM stalls WHERE id = ?`, id))
}

// DeleteBySection removes every stall of a section and returns how many.
func (r *StallRepo) DeleteBySection(ctx context.Context, sectionID uint64) (int64, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM stalls WHERE section_id = ?`, sectionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountBySection returns how many stalls a section still has.
func (r *StallRepo) CountBySection(ctx context.Context, sectionID uint64) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stalls WHERE section_id = ?`, sectionID).Scan(&n)
	return n, err
}

// MaxNumber returns the highest stall number in the group, 0 when empty.
func (r *StallRepo) MaxNumber(ctx context.Context, groupKey string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) FROM stalls WHERE group_key = ?`, groupKey).Scan(&n)
	return n, err
}

// LockGroup locks every stall row of the group and returns id/number pairs
// in ascending number order. Must run inside a transaction.
func (r *StallRepo) LockGroup(ctx context.Context, groupKey string) ([]model.Stall, error) {
	const q = `SELECT id, section_id, number FROM stalls WHERE group_key = ? ORDER BY number FOR UPDATE`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, groupKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Stall
	for rows.Next() {
		st := model.Stall{GroupKey: groupKey}
		if err := rows.Scan(&st.ID, &st.SectionID, &st.Number); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ShiftUp increments every number >= from in the group. Rows are updated
// from the highest number down so the unique index never sees a duplicate.
func (r *StallRepo) ShiftUp(ctx context.Context, groupKey string, from int) (int64, error) {
	const q = `UPDATE stalls SET number = number + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE group_key = ? AND number >= ?
	           ORDER BY number DESC`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, groupKey, from)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// Renumber moves one stall to the given group and number.
func (r *StallRepo) Renumber(ctx context.Context, id uint64, groupKey string, number int) error {
	const q = `UPDATE stalls SET group_key = ?, number = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, q, groupKey, number, id))
}
