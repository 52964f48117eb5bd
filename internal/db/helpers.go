package db

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// NullIfEmpty helps store optional strings without wiping existing data.
func NullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsDuplicateKey reports MySQL unique-constraint violations (1062).
func IsDuplicateKey(err error) bool {
	var my *mysql.MySQLError
	return errors.As(err, &my) && my.Number == 1062
}
