package domain

import (
	"time"

	"github.com/google/uuid"
)

type BorrowRecord struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	BookID            uuid.UUID    `json:"book_id" db:"book_id"`
	BorrowerID        uuid.UUID    `json:"borrower_id" db:"borrower_id"`
	Status            BorrowStatus `json:"status" db:"status"`
	BorrowerConfirmed bool         `json:"borrower_confirmed" db:"borrower_confirmed"`
	OwnerConfirmed    bool         `json:"owner_confirmed" db:"owner_confirmed"`
	CompletionNote    *string      `json:"completion_note,omitempty" db:"completion_note"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty" db:"completed_at"`

	Book     *Book `json:"book,omitempty" db:"-"`
	Borrower *User `json:"borrower,omitempty" db:"-"`
}

type BorrowStatus string

const (
	BorrowPending         BorrowStatus = "pending"
	BorrowApproved        BorrowStatus = "approved"
	BorrowBorrowed        BorrowStatus = "borrowed"
	BorrowReturnRequested BorrowStatus = "return_requested"
	BorrowCompleted       BorrowStatus = "completed"
	BorrowCancelled       BorrowStatus = "cancelled"
)

// ActiveBorrowStatuses are the non-terminal statuses. At most one record
// per (book, borrower) pair may hold one of these at a time.
var ActiveBorrowStatuses = []BorrowStatus{
	BorrowPending, BorrowApproved, BorrowBorrowed, BorrowReturnRequested,
}

func (s BorrowStatus) IsTerminal() bool {
	return s == BorrowCompleted || s == BorrowCancelled
}

type BorrowAction string

const (
	ActionApprove         BorrowAction = "approve"
	ActionReject          BorrowAction = "reject"
	ActionConfirmReceived BorrowAction = "confirm_received"
	ActionRequestReturn   BorrowAction = "request_return"
	ActionConfirmReturned BorrowAction = "confirm_returned"
	ActionCancel          BorrowAction = "cancel"
)

func (a BorrowAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionConfirmReceived,
		ActionRequestReturn, ActionConfirmReturned, ActionCancel:
		return true
	default:
		return false
	}
}

type BorrowActionInput struct {
	Note *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type BorrowListFilter struct {
	AsBorrower bool          `query:"as_borrower"`
	AsOwner    bool          `query:"as_owner"`
	Status     *BorrowStatus `query:"status"`
}
