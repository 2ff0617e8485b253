package unit_test

import (
	"context"
	"testing"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/repository"
	"tusach-congdong/internal/service/borrow"
	"tusach-congdong/tests/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type borrowFixture struct {
	borrowRepo *mocks.BorrowRepository
	bookRepo   *mocks.BookRepository
	auditRepo  *mocks.AuditLogRepository
	notifSvc   *mocks.NotificationService
	svc        borrow.Service

	ownerID    uuid.UUID
	borrowerID uuid.UUID
	book       *domain.Book
}

func newBorrowFixture() *borrowFixture {
	f := &borrowFixture{
		borrowRepo: new(mocks.BorrowRepository),
		bookRepo:   new(mocks.BookRepository),
		auditRepo:  new(mocks.AuditLogRepository),
		notifSvc:   new(mocks.NotificationService),
		ownerID:    uuid.New(),
		borrowerID: uuid.New(),
	}
	f.book = &domain.Book{
		ID:      uuid.New(),
		OwnerID: f.ownerID,
		Title:   "Dế Mèn Phiêu Lưu Ký",
		Status:  domain.BookAvailable,
	}
	f.svc = borrow.NewService(f.borrowRepo, f.bookRepo, f.auditRepo, f.notifSvc, nil)
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func (f *borrowFixture) record(status domain.BorrowStatus) *domain.BorrowRecord {
	return &domain.BorrowRecord{
		ID:         uuid.New(),
		BookID:     f.book.ID,
		BorrowerID: f.borrowerID,
		Status:     status,
	}
}

func strPtr(s string) *string { return &s }

func TestBorrowService_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending record and notifies the owner", func(t *testing.T) {
		f := newBorrowFixture()

		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
		f.borrowRepo.On("HasActiveForPair", ctx, f.book.ID, f.borrowerID).Return(false, nil).Once()
		f.borrowRepo.On("Create", ctx, mock.MatchedBy(func(r *domain.BorrowRecord) bool {
			return r.Status == domain.BorrowPending && r.BorrowerID == f.borrowerID
		})).Return(nil).Once()
		f.notifSvc.On("Dispatch", ctx, mock.MatchedBy(func(i domain.NotificationIntent) bool {
			return i.UserID == f.ownerID && i.Type == domain.NotifBorrowRequest && i.RelatedID != nil
		})).Return(&domain.Notification{}, nil).Once()

		record, err := f.svc.Request(ctx, f.book.ID, f.borrowerID)

		assert.NoError(t, err)
		assert.Equal(t, domain.BorrowPending, record.Status)
		f.borrowRepo.AssertExpectations(t)
		f.notifSvc.AssertExpectations(t)
	})

	t.Run("owner cannot borrow their own book", func(t *testing.T) {
		f := newBorrowFixture()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()

		record, err := f.svc.Request(ctx, f.book.ID, f.ownerID)

		assert.ErrorIs(t, err, domain.ErrOwnBook)
		assert.Nil(t, record)
	})

	t.Run("unavailable book is rejected", func(t *testing.T) {
		f := newBorrowFixture()
		f.book.Status = domain.BookBorrowed
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()

		record, err := f.svc.Request(ctx, f.book.ID, f.borrowerID)

		assert.ErrorIs(t, err, domain.ErrBookUnavailable)
		assert.Nil(t, record)
	})

	t.Run("an active request for the same pair blocks a second one", func(t *testing.T) {
		f := newBorrowFixture()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
		f.borrowRepo.On("HasActiveForPair", ctx, f.book.ID, f.borrowerID).Return(true, nil).Once()

		record, err := f.svc.Request(ctx, f.book.ID, f.borrowerID)

		assert.ErrorIs(t, err, domain.ErrActiveBorrowExists)
		assert.Nil(t, record)
		f.borrowRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestBorrowService_ApplyAction_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newBorrowFixture()

	current := f.record(domain.BorrowPending)
	f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil)
	f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil)

	// Approve reserves the book.
	f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
		return tr.ToStatus == domain.BorrowApproved && tr.BookStatus != nil && *tr.BookStatus == domain.BookUnavailable
	})).Return(nil).Once()
	f.notifSvc.On("Dispatch", ctx, mock.MatchedBy(func(i domain.NotificationIntent) bool {
		return i.UserID == f.borrowerID && i.Type == domain.NotifBorrowApproved
	})).Return(&domain.Notification{}, nil).Once()

	record, err := f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionApprove, nil)
	assert.NoError(t, err)
	assert.Equal(t, domain.BorrowApproved, record.Status)

	// Handover confirmed by the borrower.
	current.Status = domain.BorrowApproved
	f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
		return tr.ToStatus == domain.BorrowBorrowed &&
			tr.BorrowerConfirmed != nil && *tr.BorrowerConfirmed &&
			tr.BookStatus != nil && *tr.BookStatus == domain.BookBorrowed
	})).Return(nil).Once()

	record, err = f.svc.ApplyAction(ctx, current.ID, f.borrowerID, domain.ActionConfirmReceived, nil)
	assert.NoError(t, err)
	assert.Equal(t, domain.BorrowBorrowed, record.Status)

	// Borrower asks to give the book back.
	current.Status = domain.BorrowBorrowed
	f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
		return tr.ToStatus == domain.BorrowReturnRequested && tr.BookStatus == nil
	})).Return(nil).Once()
	f.notifSvc.On("Dispatch", ctx, mock.MatchedBy(func(i domain.NotificationIntent) bool {
		return i.UserID == f.ownerID && i.Type == domain.NotifReturnRequested
	})).Return(&domain.Notification{}, nil).Once()

	record, err = f.svc.ApplyAction(ctx, current.ID, f.borrowerID, domain.ActionRequestReturn, nil)
	assert.NoError(t, err)
	assert.Equal(t, domain.BorrowReturnRequested, record.Status)

	// Owner closes the loan with a note; the book frees up.
	current.Status = domain.BorrowReturnRequested
	f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
		return tr.ToStatus == domain.BorrowCompleted &&
			tr.OwnerConfirmed != nil && *tr.OwnerConfirmed &&
			tr.CompletionNote != nil && *tr.CompletionNote == "sách tốt" &&
			tr.CompletedAt != nil &&
			tr.BookStatus != nil && *tr.BookStatus == domain.BookAvailable
	})).Return(nil).Once()
	f.notifSvc.On("Dispatch", ctx, mock.MatchedBy(func(i domain.NotificationIntent) bool {
		return i.UserID == f.borrowerID && i.Type == domain.NotifReturnConfirmed
	})).Return(&domain.Notification{}, nil).Once()

	record, err = f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionConfirmReturned, strPtr("sách tốt"))
	assert.NoError(t, err)
	assert.Equal(t, domain.BorrowCompleted, record.Status)

	f.borrowRepo.AssertExpectations(t)
	f.notifSvc.AssertExpectations(t)
	f.notifSvc.AssertNumberOfCalls(t, "Dispatch", 3)
}

func TestBorrowService_ApplyAction_Authorization(t *testing.T) {
	ctx := context.Background()

	t.Run("borrower cannot approve", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowPending)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()

		record, err := f.svc.ApplyAction(ctx, current.ID, f.borrowerID, domain.ActionApprove, nil)

		assert.ErrorIs(t, err, domain.ErrNotAllowed)
		assert.Nil(t, record)
		f.borrowRepo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything)
	})

	t.Run("owner cannot confirm receipt", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowApproved)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()

		record, err := f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionConfirmReceived, nil)

		assert.ErrorIs(t, err, domain.ErrNotAllowed)
		assert.Nil(t, record)
	})

	t.Run("a stranger cannot act at all", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowPending)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()

		record, err := f.svc.ApplyAction(ctx, current.ID, uuid.New(), domain.ActionCancel, nil)

		assert.ErrorIs(t, err, domain.ErrNotAllowed)
		assert.Nil(t, record)
	})
}

func TestBorrowService_ApplyAction_Guards(t *testing.T) {
	ctx := context.Background()

	t.Run("lost status race surfaces as invalid transition", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowPending)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
		f.borrowRepo.On("ApplyTransition", ctx, mock.Anything).
			Return(domain.ErrInvalidTransition).Once()

		record, err := f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionApprove, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Nil(t, record)
		f.notifSvc.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})

	t.Run("completion requires a note", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowReturnRequested)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Times(2)
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Times(2)

		record, err := f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionConfirmReturned, nil)
		assert.ErrorIs(t, err, domain.ErrCompletionNoteMissing)
		assert.Nil(t, record)

		record, err = f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionConfirmReturned, strPtr(""))
		assert.ErrorIs(t, err, domain.ErrCompletionNoteMissing)
		assert.Nil(t, record)

		f.borrowRepo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything)
	})

	t.Run("status outside the action's set is rejected before the store", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowApproved)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()

		record, err := f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionApprove, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Nil(t, record)
		f.borrowRepo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything)
	})

	t.Run("unknown action is an invalid transition", func(t *testing.T) {
		f := newBorrowFixture()

		record, err := f.svc.ApplyAction(ctx, uuid.New(), f.ownerID, domain.BorrowAction("teleport"), nil)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Nil(t, record)
	})
}

// The status update must guard on the exact status the service read,
// so a concurrent move to another admissible status fails the guard
// instead of committing a transition whose book side effect was
// derived from a stale read.
func TestBorrowService_ApplyAction_GuardsOnObservedStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel seen as pending guards on pending only", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowPending)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
		f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
			return len(tr.FromStatuses) == 1 && tr.FromStatuses[0] == domain.BorrowPending &&
				tr.BookStatus == nil
		})).Return(nil).Once()

		_, err := f.svc.ApplyAction(ctx, current.ID, f.borrowerID, domain.ActionCancel, nil)

		assert.NoError(t, err)
		f.borrowRepo.AssertExpectations(t)
	})

	t.Run("confirm_returned seen as return_requested guards on that alone", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowReturnRequested)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
		f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
			return len(tr.FromStatuses) == 1 && tr.FromStatuses[0] == domain.BorrowReturnRequested
		})).Return(nil).Once()
		f.notifSvc.On("Dispatch", ctx, mock.Anything).Return(&domain.Notification{}, nil).Once()

		_, err := f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionConfirmReturned, strPtr("sách tốt"))

		assert.NoError(t, err)
		f.borrowRepo.AssertExpectations(t)
	})

	t.Run("cancel losing the race to approve fails the guard", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowPending)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
		f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
			return len(tr.FromStatuses) == 1 && tr.FromStatuses[0] == domain.BorrowPending
		})).Return(domain.ErrInvalidTransition).Once()

		record, err := f.svc.ApplyAction(ctx, current.ID, f.borrowerID, domain.ActionCancel, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Nil(t, record)
		f.borrowRepo.AssertExpectations(t)
	})
}

func TestBorrowService_ApplyAction_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling an approved request frees the book", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowApproved)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
		f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
			return tr.ToStatus == domain.BorrowCancelled &&
				tr.BookStatus != nil && *tr.BookStatus == domain.BookAvailable
		})).Return(nil).Once()

		record, err := f.svc.ApplyAction(ctx, current.ID, f.borrowerID, domain.ActionCancel, nil)

		assert.NoError(t, err)
		assert.Equal(t, domain.BorrowCancelled, record.Status)
		f.borrowRepo.AssertExpectations(t)
	})

	t.Run("cancelling a pending request touches no book", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowPending)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
		f.borrowRepo.On("ApplyTransition", ctx, mock.MatchedBy(func(tr repository.BorrowTransition) bool {
			return tr.ToStatus == domain.BorrowCancelled && tr.BookStatus == nil
		})).Return(nil).Once()

		record, err := f.svc.ApplyAction(ctx, current.ID, f.borrowerID, domain.ActionCancel, nil)

		assert.NoError(t, err)
		assert.Equal(t, domain.BorrowCancelled, record.Status)
		f.notifSvc.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})
}

func TestBorrowService_ApplyAction_NotificationFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newBorrowFixture()
	current := f.record(domain.BorrowPending)

	f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
	f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()
	f.borrowRepo.On("ApplyTransition", ctx, mock.Anything).Return(nil).Once()
	f.notifSvc.On("Dispatch", ctx, mock.Anything).Return(nil, assert.AnError).Once()

	record, err := f.svc.ApplyAction(ctx, current.ID, f.ownerID, domain.ActionApprove, nil)

	assert.NoError(t, err, "the transition already committed")
	assert.Equal(t, domain.BorrowApproved, record.Status)
	f.notifSvc.AssertExpectations(t)
}

func TestBorrowService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("parties and admins may read", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowBorrowed)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Times(3)
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Times(3)

		for _, actorID := range []uuid.UUID{f.borrowerID, f.ownerID} {
			record, err := f.svc.GetByID(ctx, current.ID, actorID, false)
			assert.NoError(t, err)
			assert.NotNil(t, record.Book)
		}

		record, err := f.svc.GetByID(ctx, current.ID, uuid.New(), true)
		assert.NoError(t, err)
		assert.NotNil(t, record)
	})

	t.Run("strangers may not", func(t *testing.T) {
		f := newBorrowFixture()
		current := f.record(domain.BorrowBorrowed)
		f.borrowRepo.On("GetByID", ctx, current.ID).Return(current, nil).Once()
		f.bookRepo.On("GetByID", ctx, f.book.ID).Return(f.book, nil).Once()

		record, err := f.svc.GetByID(ctx, current.ID, uuid.New(), false)

		assert.ErrorIs(t, err, domain.ErrNotAllowed)
		assert.Nil(t, record)
	})
}
