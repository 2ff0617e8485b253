package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tusach-congdong/internal/domain"
)

// BorrowTransition describes one status move. FromStatuses is the CAS
// guard: the update only lands if the stored status is still one of
// them, so two concurrent callers cannot both apply the same move.
type BorrowTransition struct {
	RecordID          uuid.UUID
	FromStatuses      []domain.BorrowStatus
	ToStatus          domain.BorrowStatus
	BorrowerConfirmed *bool
	OwnerConfirmed    *bool
	CompletionNote    *string
	CompletedAt       *time.Time

	// BookStatus, when set, is applied to BookID inside the same
	// transaction as the record update.
	BookID     uuid.UUID
	BookStatus *domain.BookStatus
}

type BorrowRepository interface {
	Create(ctx context.Context, record *domain.BorrowRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BorrowRecord, error)
	HasActiveForPair(ctx context.Context, bookID, borrowerID uuid.UUID) (bool, error)
	HasActiveForBook(ctx context.Context, bookID uuid.UUID) (bool, error)
	ApplyTransition(ctx context.Context, t BorrowTransition) error
	ListByUser(ctx context.Context, userID uuid.UUID, filter domain.BorrowListFilter, params domain.PaginationParams) ([]domain.BorrowRecord, int64, error)
}

type borrowRepository struct {
	db *sqlx.DB
}

func NewBorrowRepository(db *sqlx.DB) BorrowRepository {
	return &borrowRepository{db: db}
}

func (r *borrowRepository) Create(ctx context.Context, record *domain.BorrowRecord) error {
	query := `
		INSERT INTO borrow_records (id, book_id, borrower_id, status, borrower_confirmed, owner_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		record.ID, record.BookID, record.BorrowerID, record.Status,
		record.BorrowerConfirmed, record.OwnerConfirmed,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
}

func (r *borrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BorrowRecord, error) {
	var record domain.BorrowRecord
	query := `SELECT * FROM borrow_records WHERE id = $1`

	err := r.db.GetContext(ctx, &record, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *borrowRepository) HasActiveForPair(ctx context.Context, bookID, borrowerID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM borrow_records
			WHERE book_id = $1 AND borrower_id = $2 AND status = ANY($3)
		)`

	err := r.db.GetContext(ctx, &exists, query, bookID, borrowerID, statusArray(domain.ActiveBorrowStatuses))
	return exists, err
}

func (r *borrowRepository) HasActiveForBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM borrow_records
			WHERE book_id = $1 AND status = ANY($2)
		)`

	err := r.db.GetContext(ctx, &exists, query, bookID, statusArray(domain.ActiveBorrowStatuses))
	return exists, err
}

// ApplyTransition moves a record between statuses and mirrors the book
// side effect in a single transaction. A CAS miss (the record is no
// longer in one of FromStatuses) returns domain.ErrInvalidTransition
// and leaves both rows untouched.
func (r *borrowRepository) ApplyTransition(ctx context.Context, t BorrowTransition) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE borrow_records
		SET status = $2,
		    borrower_confirmed = COALESCE($3, borrower_confirmed),
		    owner_confirmed = COALESCE($4, owner_confirmed),
		    completion_note = COALESCE($5, completion_note),
		    completed_at = COALESCE($6, completed_at),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($7)`

	result, err := tx.ExecContext(ctx, query,
		t.RecordID, t.ToStatus,
		t.BorrowerConfirmed, t.OwnerConfirmed, t.CompletionNote, t.CompletedAt,
		statusArray(t.FromStatuses),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvalidTransition
	}

	if t.BookStatus != nil {
		bookQuery := `UPDATE books SET status = $2, updated_at = NOW() WHERE id = $1`
		result, err = tx.ExecContext(ctx, bookQuery, t.BookID, *t.BookStatus)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrBookNotFound
		}
	}

	return tx.Commit()
}

func (r *borrowRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter domain.BorrowListFilter, params domain.PaginationParams) ([]domain.BorrowRecord, int64, error) {
	params.Validate()

	where := `(br.borrower_id = $1 OR b.owner_id = $1)`
	if filter.AsBorrower && !filter.AsOwner {
		where = `br.borrower_id = $1`
	} else if filter.AsOwner && !filter.AsBorrower {
		where = `b.owner_id = $1`
	}

	args := []interface{}{userID}
	if filter.Status != nil {
		where += ` AND br.status = $2`
		args = append(args, *filter.Status)
	}

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM borrow_records br
		JOIN books b ON br.book_id = b.id
		WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	limitPos := len(args) + 1
	query := `
		SELECT br.*
		FROM borrow_records br
		JOIN books b ON br.book_id = b.id
		WHERE ` + where + `
		ORDER BY br.created_at DESC
		LIMIT $` + strconv.Itoa(limitPos) + ` OFFSET $` + strconv.Itoa(limitPos+1)
	args = append(args, params.PageSize, params.Offset())

	var records []domain.BorrowRecord
	err := r.db.SelectContext(ctx, &records, query, args...)
	return records, total, err
}

func statusArray(statuses []domain.BorrowStatus) interface{} {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return pq.Array(values)
}
