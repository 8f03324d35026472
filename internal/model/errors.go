package model

import "errors"

// Sentinel errors shared by repositories, services and handlers.  Handlers
// translate them into HTTP statuses with stable reason codes; storage
// messages never reach clients.
var (
	ErrBookNotFound   = errors.New("book not found")
	ErrIssueNotFound  = errors.New("book issue not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrAuthorNotFound = errors.New("author not found")
	ErrGenreNotFound  = errors.New("genre not found")

	// ErrUnauthorized means no verified identity accompanies the request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the identity is known but may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInactiveUser is a forbidden case reported separately to clients.
	ErrInactiveUser = errors.New("inactive user")
	// ErrInvalidCredentials is returned by login for unknown users and bad passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidInput = errors.New("invalid input")

	ErrUsernameTaken  = errors.New("username already exists")
	ErrGenreExists    = errors.New("genre already exists")
	ErrAuthorHasBooks = errors.New("author still has books")
	ErrBookHasIssues  = errors.New("book has lending history")
	ErrGenreInUse     = errors.New("genre is referenced by books")

	// ErrLockWaitTimeout means a row lock could not be acquired in time.
	// The lending workflow retries the whole unit of work once.
	ErrLockWaitTimeout = errors.New("lock wait timeout")
	// ErrStorage wraps every other persistence failure.
	ErrStorage = errors.New("storage failure")
)
