// Package repository implements persistence on MySQL.  Driver errors are
// translated into the sentinel values of package model so that higher
// layers such as handlers can distinguish failure scenarios without
// looking at storage messages.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/D191001/libra/internal/model"
)

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// storageErr classifies err.  Lock wait timeouts become
// model.ErrLockWaitTimeout so the lending workflow can retry them; context
// errors pass through untouched; everything else is model.ErrStorage.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if mysqlCode(err) == mysqlLockWaitTimeout {
		return fmt.Errorf("%s: %w: %w", op, model.ErrLockWaitTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorage, err)
}

// notFoundOr maps sql.ErrNoRows to notFound and classifies anything else.
func notFoundOr(op string, err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return storageErr(op, err)
}
