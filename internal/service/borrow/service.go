package borrow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/repository"
	"tusach-congdong/internal/service/notification"
)

// Service drives the borrow lifecycle:
//
//	pending → approved → borrowed → return_requested → completed
//
// with pending/approved able to end in cancelled. Each action is gated
// twice, on the caller's party (owner or borrower) and on the stored
// status; the status move and the book side effect land in one
// transaction, and the notification for the other party goes out only
// after that transaction committed.
type Service interface {
	Request(ctx context.Context, bookID, borrowerID uuid.UUID) (*domain.BorrowRecord, error)
	ApplyAction(ctx context.Context, recordID, actorID uuid.UUID, action domain.BorrowAction, note *string) (*domain.BorrowRecord, error)
	GetByID(ctx context.Context, recordID, actorID uuid.UUID, isAdmin bool) (*domain.BorrowRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter domain.BorrowListFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.BorrowRecord], error)
}

type service struct {
	borrowRepo repository.BorrowRepository
	bookRepo   repository.BookRepository
	auditRepo  repository.AuditLogRepository
	notifSvc   notification.Service
	redis      *redis.Client
	now        func() time.Time
}

func NewService(
	borrowRepo repository.BorrowRepository,
	bookRepo repository.BookRepository,
	auditRepo repository.AuditLogRepository,
	notifSvc notification.Service,
	redis *redis.Client,
) Service {
	return &service{
		borrowRepo: borrowRepo,
		bookRepo:   bookRepo,
		auditRepo:  auditRepo,
		notifSvc:   notifSvc,
		redis:      redis,
		now:        time.Now,
	}
}

func (s *service) Request(ctx context.Context, bookID, borrowerID uuid.UUID) (*domain.BorrowRecord, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, domain.ErrBookNotFound
	}
	if book.OwnerID == borrowerID {
		return nil, domain.ErrOwnBook
	}
	if book.Status != domain.BookAvailable {
		return nil, domain.ErrBookUnavailable
	}

	active, err := s.borrowRepo.HasActiveForPair(ctx, bookID, borrowerID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domain.ErrActiveBorrowExists
	}

	record := &domain.BorrowRecord{
		ID:         uuid.New(),
		BookID:     bookID,
		BorrowerID: borrowerID,
		Status:     domain.BorrowPending,
	}

	if err := s.borrowRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logAudit(ctx, borrowerID, "REQUEST_BORROW", record.ID, nil)
	s.dispatch(ctx, record, domain.NotificationIntent{
		UserID:  book.OwnerID,
		Type:    domain.NotifBorrowRequest,
		Title:   "Yêu cầu mượn sách mới",
		Message: fmt.Sprintf("Có người muốn mượn cuốn \"%s\" của bạn", book.Title),
	})

	return record, nil
}

// transition captures one row of the action table: who may call it,
// which stored statuses admit it, where it lands, and what happens to
// the book.
type transition struct {
	byOwner    bool
	from       []domain.BorrowStatus
	to         domain.BorrowStatus
	bookStatus func(record *domain.BorrowRecord) *domain.BookStatus
}

var transitions = map[domain.BorrowAction]transition{
	domain.ActionApprove: {
		byOwner: true,
		from:    []domain.BorrowStatus{domain.BorrowPending},
		to:      domain.BorrowApproved,
		// Reserve the book while the handover is arranged.
		bookStatus: fixedBookStatus(domain.BookUnavailable),
	},
	domain.ActionReject: {
		byOwner: true,
		from:    []domain.BorrowStatus{domain.BorrowPending},
		to:      domain.BorrowCancelled,
	},
	domain.ActionConfirmReceived: {
		byOwner:    false,
		from:       []domain.BorrowStatus{domain.BorrowApproved},
		to:         domain.BorrowBorrowed,
		bookStatus: fixedBookStatus(domain.BookBorrowed),
	},
	domain.ActionRequestReturn: {
		byOwner: false,
		from:    []domain.BorrowStatus{domain.BorrowBorrowed},
		to:      domain.BorrowReturnRequested,
	},
	domain.ActionConfirmReturned: {
		byOwner:    true,
		from:       []domain.BorrowStatus{domain.BorrowBorrowed, domain.BorrowReturnRequested},
		to:         domain.BorrowCompleted,
		bookStatus: fixedBookStatus(domain.BookAvailable),
	},
	domain.ActionCancel: {
		byOwner: false,
		from:    []domain.BorrowStatus{domain.BorrowPending, domain.BorrowApproved},
		to:      domain.BorrowCancelled,
		bookStatus: func(record *domain.BorrowRecord) *domain.BookStatus {
			// Only an approved record holds a reservation to release.
			if record.Status == domain.BorrowApproved {
				status := domain.BookAvailable
				return &status
			}
			return nil
		},
	},
}

func fixedBookStatus(status domain.BookStatus) func(*domain.BorrowRecord) *domain.BookStatus {
	return func(*domain.BorrowRecord) *domain.BookStatus {
		return &status
	}
}

func (t transition) allows(status domain.BorrowStatus) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

func (s *service) ApplyAction(ctx context.Context, recordID, actorID uuid.UUID, action domain.BorrowAction, note *string) (*domain.BorrowRecord, error) {
	t, ok := transitions[action]
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	record, err := s.borrowRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrBorrowNotFound
	}

	book, err := s.bookRepo.GetByID(ctx, record.BookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, domain.ErrBookNotFound
	}

	// Role check comes first so an unauthorized caller learns nothing
	// about the record's current status.
	if t.byOwner {
		if book.OwnerID != actorID {
			return nil, domain.ErrNotAllowed
		}
	} else {
		if record.BorrowerID != actorID {
			return nil, domain.ErrNotAllowed
		}
	}

	if !t.allows(record.Status) {
		return nil, domain.ErrInvalidTransition
	}

	if action == domain.ActionConfirmReturned && (note == nil || *note == "") {
		return nil, domain.ErrCompletionNoteMissing
	}

	var bookStatus *domain.BookStatus
	if t.bookStatus != nil {
		bookStatus = t.bookStatus(record)
	}

	// Guard on the one status this call observed: the book side effect
	// above was derived from it, and a concurrent move to another
	// admissible status must fail the CAS rather than commit a record
	// change whose side effect no longer matches.
	update := repository.BorrowTransition{
		RecordID:     recordID,
		FromStatuses: []domain.BorrowStatus{record.Status},
		ToStatus:     t.to,
		BookID:       record.BookID,
		BookStatus:   bookStatus,
	}

	switch action {
	case domain.ActionConfirmReceived:
		confirmed := true
		update.BorrowerConfirmed = &confirmed
	case domain.ActionConfirmReturned:
		confirmed := true
		completedAt := s.now()
		update.OwnerConfirmed = &confirmed
		update.CompletionNote = note
		update.CompletedAt = &completedAt
	}

	if err := s.borrowRepo.ApplyTransition(ctx, update); err != nil {
		return nil, err
	}

	if bookStatus != nil && s.redis != nil {
		_ = s.redis.Del(ctx, "book:"+record.BookID.String()).Err()
	}

	record.Status = t.to
	s.logAudit(ctx, actorID, auditAction(action), recordID, note)
	s.notifyAfterCommit(ctx, action, record, book)

	return record, nil
}

// notifyAfterCommit fires the transition's notification intent. The
// transaction is already committed; a dispatch failure is logged and
// the event's notification is dropped, never retried here.
func (s *service) notifyAfterCommit(ctx context.Context, action domain.BorrowAction, record *domain.BorrowRecord, book *domain.Book) {
	var intent domain.NotificationIntent

	switch action {
	case domain.ActionApprove:
		intent = domain.NotificationIntent{
			UserID:  record.BorrowerID,
			Type:    domain.NotifBorrowApproved,
			Title:   "Yêu cầu mượn sách được chấp nhận",
			Message: fmt.Sprintf("Chủ sách đã đồng ý cho bạn mượn cuốn \"%s\"", book.Title),
		}
	case domain.ActionReject:
		intent = domain.NotificationIntent{
			UserID:  record.BorrowerID,
			Type:    domain.NotifBorrowRejected,
			Title:   "Yêu cầu mượn sách bị từ chối",
			Message: fmt.Sprintf("Chủ sách đã từ chối yêu cầu mượn cuốn \"%s\"", book.Title),
		}
	case domain.ActionRequestReturn:
		intent = domain.NotificationIntent{
			UserID:  book.OwnerID,
			Type:    domain.NotifReturnRequested,
			Title:   "Yêu cầu trả sách",
			Message: fmt.Sprintf("Người mượn muốn trả cuốn \"%s\"", book.Title),
		}
	case domain.ActionConfirmReturned:
		intent = domain.NotificationIntent{
			UserID:  record.BorrowerID,
			Type:    domain.NotifReturnConfirmed,
			Title:   "Đã xác nhận trả sách",
			Message: fmt.Sprintf("Chủ sách đã xác nhận bạn trả cuốn \"%s\"", book.Title),
		}
	default:
		// confirm_received and cancel notify nobody.
		return
	}

	s.dispatch(ctx, record, intent)
}

func (s *service) dispatch(ctx context.Context, record *domain.BorrowRecord, intent domain.NotificationIntent) {
	if s.notifSvc == nil {
		return
	}

	recordID := record.ID
	relatedType := domain.RelatedBorrowRecord
	link := "/borrows/" + recordID.String()
	intent.RelatedID = &recordID
	intent.RelatedType = &relatedType
	intent.Link = &link

	if _, err := s.notifSvc.Dispatch(ctx, intent); err != nil {
		log.Printf("Failed to dispatch %s notification for borrow %s: %v", intent.Type, record.ID, err)
	}
}

func (s *service) GetByID(ctx context.Context, recordID, actorID uuid.UUID, isAdmin bool) (*domain.BorrowRecord, error) {
	record, err := s.borrowRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrBorrowNotFound
	}

	book, err := s.bookRepo.GetByID(ctx, record.BookID)
	if err != nil {
		return nil, err
	}
	if book != nil {
		record.Book = book
	}

	if !isAdmin && record.BorrowerID != actorID && (book == nil || book.OwnerID != actorID) {
		return nil, domain.ErrNotAllowed
	}

	return record, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, filter domain.BorrowListFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.BorrowRecord], error) {
	records, total, err := s.borrowRepo.ListByUser(ctx, userID, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.BorrowRecord]{}, err
	}

	return domain.NewPaginatedResponse(records, params.Page, params.PageSize, total), nil
}

func (s *service) logAudit(ctx context.Context, actorID uuid.UUID, action string, recordID uuid.UUID, note *string) {
	_ = repository.CreateAuditLog(s.auditRepo, ctx, domain.CreateAuditLogInput{
		ActorID:    actorID,
		Action:     action,
		TargetType: domain.RelatedBorrowRecord,
		TargetID:   recordID,
		Note:       note,
	})
}

func auditAction(action domain.BorrowAction) string {
	switch action {
	case domain.ActionApprove:
		return "APPROVE_BORROW"
	case domain.ActionReject:
		return "REJECT_BORROW"
	case domain.ActionConfirmReceived:
		return "CONFIRM_RECEIVED"
	case domain.ActionRequestReturn:
		return "REQUEST_RETURN"
	case domain.ActionConfirmReturned:
		return "CONFIRM_RETURNED"
	case domain.ActionCancel:
		return "CANCEL_BORROW"
	default:
		return string(action)
	}
}
