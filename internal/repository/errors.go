// Package repository holds the MySQL data access for the rental ledger.
// Repositories return ErrNotFound and ErrDuplicate so that higher layers
// can tell missing rows and unique-key collisions apart from other
// failures without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup yields no rows.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// ErrStale is returned when an optimistic version check fails.
var ErrStale = errors.New("stale version")

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// translate maps driver errors to the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isDuplicateKey(err):
		return ErrDuplicate
	default:
		return err
	}
}

// expectOne turns "no row affected" into ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
