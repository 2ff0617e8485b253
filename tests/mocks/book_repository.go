package mocks

import (
	"context"
	"tusach-congdong/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type BookRepository struct {
	mock.Mock
}

func (m *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *BookRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *BookRepository) Update(ctx context.Context, book *domain.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *BookRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *BookRepository) SetCoverURL(ctx context.Context, id uuid.UUID, coverURL string) error {
	args := m.Called(ctx, id, coverURL)
	return args.Error(0)
}

func (m *BookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *BookRepository) List(ctx context.Context, ownerID *uuid.UUID, params domain.PaginationParams) ([]domain.Book, int64, error) {
	args := m.Called(ctx, ownerID, params)
	return args.Get(0).([]domain.Book), args.Get(1).(int64), args.Error(2)
}

func (m *BookRepository) Search(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]domain.Book), args.Error(1)
}
