package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var dupErr = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, translate(dupErr), ErrDuplicate)
	other := &mysql.MySQLError{Number: 1452}
	assert.Same(t, other, translate(other))
}

func TestVendorCreate_NormalizesNameKey(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vendors")).
		WithArgs("Fresh Fish", "fresh fish", "Ana", nil, "fish", "", "").
		WillReturnResult(sqlmock.NewResult(7, 1))

	v := &model.Vendor{Name: "Fresh Fish", Owner: "Ana", Type: "fish"}
	require.NoError(t, NewVendorRepo(db).Create(context.Background(), v))
	assert.Equal(t, uint64(7), v.ID)
}

func TestVendorCreate_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vendors")).WillReturnError(dupErr)

	err := NewVendorRepo(db).Create(context.Background(), &model.Vendor{Name: "FRESH FISH"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestVendorDelete_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM vendors")).WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewVendorRepo(db).Delete(context.Background(), 9), ErrNotFound)
}

func TestRentalDeleteByStall(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rentals WHERE stall_id = ?")).WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewRentalRepo(db).DeleteByStall(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSectionCascade_ExplicitStatements(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE r FROM rentals r JOIN stalls s ON s.id = r.stall_id WHERE s.section_id = ?")).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM stalls WHERE section_id = ?")).WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 3))

	ctx := context.Background()
	rentals, err := NewRentalRepo(db).DeleteBySection(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rentals)
	stalls, err := NewStallRepo(db).DeleteBySection(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stalls)
}

func TestStallShiftUp_OrdersDescending(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`(?s)UPDATE stalls SET number = number \+ 1.*WHERE group_key = \? AND number >= \?\s+ORDER BY number DESC`).
		WithArgs("north", 2).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewStallRepo(db).ShiftUp(context.Background(), "north", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStallLockGroup_UsesTransaction(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, section_id, number FROM stalls WHERE group_key = ? ORDER BY number FOR UPDATE")).
		WithArgs("north").
		WillReturnRows(sqlmock.NewRows([]string{"id", "section_id", "number"}).
			AddRow(10, 1, 1).AddRow(11, 1, 2))
	mock.ExpectCommit()

	repo := NewStallRepo(db)
	err := database.NewTxRunner(db).WithinTx(context.Background(), func(ctx context.Context) error {
		stalls, err := repo.LockGroup(ctx, "north")
		require.NoError(t, err)
		require.Len(t, stalls, 2)
		assert.Equal(t, 2, stalls[1].Number)
		assert.Equal(t, "north", stalls[1].GroupKey)
		return nil
	})
	require.NoError(t, err)
}

func TestStallMaxNumber(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(number), 0) FROM stalls WHERE group_key = ?")).
		WithArgs("south").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))

	n, err := NewStallRepo(db).MaxNumber(context.Background(), "south")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRentalUpdateBanPaid_Stale(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rentals")).
		WithArgs(int64(500), 3, uint32(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewRentalRepo(db).UpdateBanPaid(context.Background(), 3, 500, 2)
	assert.ErrorIs(t, err, ErrStale)
}

func TestRentalGetByID_ScansNullEndDate(t *testing.T) {
	db, mock := newMock(t)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "vendor_id", "stall_id", "start_date", "end_date", "ban_amount_cents", "ban_paid_cents", "version", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM rentals r WHERE r.id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(5, 1, 2, start, nil, 50000, 0, 1, start, start))

	rt, err := NewRentalRepo(db).GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, rt.Active())
	assert.Equal(t, int64(50000), rt.BanRemainingCents())
}

func TestRentalGetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rentals r WHERE r.id = ?")).WillReturnError(sql.ErrNoRows)

	_, err := NewRentalRepo(db).GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentInsertBatch_SingleStatement(t *testing.T) {
	db, mock := newMock(t)
	d := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments (rental_id, user_id, cost_cents, amount_cents, paid_for, or_number) VALUES (?, ?, ?, ?, ?, ?),(?, ?, ?, ?, ?, ?)")).
		WithArgs(1, 2, int64(2000), int64(2000), d, "1234567", 1, 2, int64(2000), int64(2000), d.AddDate(0, 0, 1), "1234567").
		WillReturnResult(sqlmock.NewResult(1, 2))

	err := NewPaymentRepo(db).InsertBatch(context.Background(), []model.Payment{
		{RentalID: 1, UserID: 2, CostCents: 2000, AmountCents: 2000, PaidFor: d, ORNumber: "1234567"},
		{RentalID: 1, UserID: 2, CostCents: 2000, AmountCents: 2000, PaidFor: d.AddDate(0, 0, 1), ORNumber: "1234567"},
	})
	require.NoError(t, err)
}

func TestPaymentInsertBatch_Empty(t *testing.T) {
	db, _ := newMock(t)
	assert.NoError(t, NewPaymentRepo(db).InsertBatch(context.Background(), nil))
}

func TestReceiptReserve_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO receipts")).
		WithArgs("1234567", 1, 2).
		WillReturnError(dupErr)

	err := NewReceiptRepo(db).Reserve(context.Background(), model.Receipt{ORNumber: "1234567", RentalID: 1, UserID: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestReceiptExists(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM receipts WHERE or_number = ?)")).
		WithArgs("7654321", "7654321").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewReceiptRepo(db).Exists(context.Background(), "7654321")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserGetByUsername_CaseInsensitive(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username_key=?")).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullname", "username", "password_hash", "role", "is_active", "created_at", "updated_at"}).
			AddRow(1, "Root", "Admin", "hash", "Admin", true, now, now))

	u, err := NewUserRepo(db).GetByUsername(context.Background(), "  ADMIN ")
	require.NoError(t, err)
	assert.Equal(t, "Admin", u.Username)
}

func TestTokenValidateRefresh(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	q := regexp.QuoteMeta("SELECT user_id, expires_at, revoked_at FROM refresh_tokens")

	mock.ExpectQuery(q).WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(4, time.Now().UTC().Add(time.Hour), nil))
	id, err := repo.ValidateRefresh(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id)

	mock.ExpectQuery(q).WithArgs("h2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(4, time.Now().UTC().Add(-time.Hour), nil))
	_, err = repo.ValidateRefresh(context.Background(), "h2")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	mock.ExpectQuery(q).WithArgs("h3").WillReturnError(sql.ErrNoRows)
	_, err = repo.ValidateRefresh(context.Background(), "h3")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
