package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tusach-congdong/internal/domain"
)

type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	Update(ctx context.Context, book *domain.Book) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus) error
	SetCoverURL(ctx context.Context, id uuid.UUID, coverURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, ownerID *uuid.UUID, params domain.PaginationParams) ([]domain.Book, int64, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Book, error)
}

type bookRepository struct {
	db *sqlx.DB
}

func NewBookRepository(db *sqlx.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	query := `
		INSERT INTO books (id, owner_id, title, author, description, category, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		book.ID, book.OwnerID, book.Title, book.Author, book.Description, book.Category, book.Status,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
}

func (r *bookRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	var book domain.Book
	query := `SELECT * FROM books WHERE id = $1`

	err := r.db.GetContext(ctx, &book, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	query := `
		UPDATE books
		SET title = $2, author = $3, description = $4, category = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	return r.db.QueryRowxContext(ctx, query,
		book.ID, book.Title, book.Author, book.Description, book.Category, book.Status,
	).Scan(&book.UpdatedAt)
}

func (r *bookRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus) error {
	query := `UPDATE books SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (r *bookRepository) SetCoverURL(ctx context.Context, id uuid.UUID, coverURL string) error {
	query := `UPDATE books SET cover_url = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, coverURL)
	return err
}

func (r *bookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM books WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *bookRepository) List(ctx context.Context, ownerID *uuid.UUID, params domain.PaginationParams) ([]domain.Book, int64, error) {
	params.Validate()

	var total int64
	var books []domain.Book

	if ownerID != nil {
		countQuery := `SELECT COUNT(*) FROM books WHERE owner_id = $1`
		if err := r.db.GetContext(ctx, &total, countQuery, *ownerID); err != nil {
			return nil, 0, err
		}

		query := `
			SELECT * FROM books
			WHERE owner_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`
		err := r.db.SelectContext(ctx, &books, query, *ownerID, params.PageSize, params.Offset())
		return books, total, err
	}

	countQuery := `SELECT COUNT(*) FROM books`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT * FROM books
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &books, query, params.PageSize, params.Offset())
	return books, total, err
}

func (r *bookRepository) Search(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	var books []domain.Book
	sqlQuery := `
		SELECT * FROM books
		WHERE title ILIKE '%' || $1 || '%' OR author ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &books, sqlQuery, query, limit)
	return books, err
}
