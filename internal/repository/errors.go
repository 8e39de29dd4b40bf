package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Storage-level outcomes services translate into domain errors
var (
	// ErrRecordNotFound the addressed row does not exist
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey a unique constraint rejected the write
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStatusConflict a conditional status update matched no row
	ErrStatusConflict = errors.New("status conflict")
)

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// translateError maps driver errors onto the package sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case isDuplicateKey(err):
		return ErrDuplicateKey
	default:
		return err
	}
}

// Offset converts a 1-based page into a row offset
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
