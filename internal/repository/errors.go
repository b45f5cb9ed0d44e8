// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish between different failure scenarios without inspecting
// driver errors itself.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource scoped to another building.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional write found the row in a
// state that no longer allows the change (e.g. an invite code consumed
// by a concurrent enrollment).
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// mapDuplicate converts a unique-key violation into ErrDuplicate and
// passes every other error through.
func mapDuplicate(err error) error {
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}
