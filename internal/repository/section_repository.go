package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/model"
)

// SectionRepo provides data access for sections.
type SectionRepo struct {
	db *sql.DB
}

func NewSectionRepo(db *sql.DB) *SectionRepo { return &SectionRepo{db: db} }

// Create inserts a section. Name must be unique inside its group ignoring
// case, otherwise ErrDuplicate.
func (r *SectionRepo) Create(ctx context.Context, s *model.Section) error {
	const q = `INSERT INTO sections (group_name, group_key, name, name_key, stalls_per_row)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q,
		s.Group, model.NormalizeKey(s.Group), s.Name, model.NormalizeKey(s.Name), s.StallsPerRow)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID retrieves a section by id.
func (r *SectionRepo) GetByID(ctx context.Context, id uint64) (model.Section, error) {
	const q = `SELECT id, group_name, name, stalls_per_row, created_at, updated_at FROM sections WHERE id = ?`
	var s model.Section
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.Group, &s.Name, &s.StallsPerRow, &s.CreatedAt, &s.UpdatedAt)
	return s, translate(err)
}

// List returns every section with its stall count, ordered by group then name.
func (r *SectionRepo) List(ctx context.Context) ([]model.SectionView, error) {
	const q = `SELECT s.id, s.group_name, s.name, s.stalls_per_row, s.created_at, s.updated_at,
	                  (SELECT COUNT(*) FROM stalls st WHERE st.section_id = s.id)
	           FROM sections s
	           ORDER BY s.group_key, s.name_key`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SectionView{}
	for rows.Next() {
		var v model.SectionView
		if err := rows.Scan(&v.ID, &v.Group, &v.Name, &v.StallsPerRow, &v.CreatedAt, &v.UpdatedAt, &v.StallCount); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Update overwrites group, name and stalls-per-row.
func (r *SectionRepo) Update(ctx context.Context, s *model.Section) error {
	const q = `UPDATE sections
	           SET group_name = ?, group_key = ?, name = ?, name_key = ?, stalls_per_row = ?,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, q,
		s.Group, model.NormalizeKey(s.Group), s.Name, model.NormalizeKey(s.Name), s.StallsPerRow, s.ID))
}

// Delete removes a section. Its stalls must be deleted first.
func (r *SectionRepo) Delete(ctx context.Context, id uint64) error {
	return expectOne(database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id))
}
