package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

const (
	pqUniqueViolation = "23505"
	// raised when a non-uuid string is compared against a uuid column
	pqInvalidTextRepresentation = "22P02"
)

// transient SQLSTATE codes: serialization failure, deadlock, query canceled,
// too many connections.
var transientCodes = map[pq.ErrorCode]bool{
	"40001": true,
	"40P01": true,
	"57014": true,
	"53300": true,
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

func isInvalidID(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqInvalidTextRepresentation
	}
	return false
}

// lookupError reports a missing row or a malformed id as NotFound with message.
func lookupError(err error, message, op string) error {
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return translateError(err, op)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// class 08: connection exception
		return strings.HasPrefix(string(pqErr.Code), "08") || transientCodes[pqErr.Code]
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// translateError maps driver failures onto the registration error taxonomy.
// Errors that already carry an application code pass through untouched.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if isInvalidID(err) {
		return appErrors.Clone(appErrors.ErrNotFound, "")
	}
	if isTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, op)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, op)
}
