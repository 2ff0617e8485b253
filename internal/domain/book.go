package domain

import (
	"time"

	"github.com/google/uuid"
)

type Book struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OwnerID     uuid.UUID  `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Author      *string    `json:"author,omitempty" db:"author"`
	Description *string    `json:"description,omitempty" db:"description"`
	Category    *string    `json:"category,omitempty" db:"category"`
	CoverURL    *string    `json:"cover_url,omitempty" db:"cover_url"`
	Status      BookStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	Owner *User `json:"owner,omitempty" db:"-"`
}

type BookStatus string

const (
	BookAvailable   BookStatus = "available"
	BookBorrowed    BookStatus = "borrowed"
	BookUnavailable BookStatus = "unavailable"
)

func (s BookStatus) IsValid() bool {
	switch s {
	case BookAvailable, BookBorrowed, BookUnavailable:
		return true
	default:
		return false
	}
}

type CreateBookInput struct {
	Title       string  `json:"title" validate:"required,min=1"`
	Author      *string `json:"author,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

type UpdateBookInput struct {
	Title       *string     `json:"title,omitempty"`
	Author      **string    `json:"author,omitempty"`
	Description **string    `json:"description,omitempty"`
	Category    **string    `json:"category,omitempty"`
	Status      *BookStatus `json:"status,omitempty"`
}
