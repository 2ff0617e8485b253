package domain

import "errors"

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrBorrowNotFound = errors.New("borrow record not found")
	ErrUserNotFound   = errors.New("user not found")

	// ErrNotAllowed is the role-mismatch failure: the caller is neither
	// the party the action requires nor an admin where one is accepted.
	ErrNotAllowed = errors.New("not allowed to perform this action")

	// ErrInvalidTransition means the stored status does not permit the
	// requested action. Also returned when a concurrent caller already
	// moved the record past the expected status.
	ErrInvalidTransition = errors.New("invalid borrow status transition")

	ErrBookUnavailable       = errors.New("book is not available for borrowing")
	ErrOwnBook               = errors.New("cannot borrow your own book")
	ErrActiveBorrowExists    = errors.New("an active borrow request already exists for this book")
	ErrCompletionNoteMissing = errors.New("completion note is required to confirm a return")
	ErrBookHasActiveBorrow   = errors.New("book has an active borrow record")

	// ErrDuplicateNotification is the storage-level dedup signal: the
	// unique index on (user_id, related_id, related_type, type) rejected
	// the insert. The dispatcher treats it as a successful no-op.
	ErrDuplicateNotification = errors.New("notification already exists for this event")
)
