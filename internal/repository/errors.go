// Package repository holds the MySQL data access of the service.  Lookups
// that find no row return a nil value and a nil error; the service layer
// decides whether absence is an error.  Other failures are wrapped driver
// errors or one of the sentinels below.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when a user with the same email is already
// registered.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
