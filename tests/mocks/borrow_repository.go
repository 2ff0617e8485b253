package mocks

import (
	"context"
	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type BorrowRepository struct {
	mock.Mock
}

func (m *BorrowRepository) Create(ctx context.Context, record *domain.BorrowRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *BorrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BorrowRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BorrowRecord), args.Error(1)
}

func (m *BorrowRepository) HasActiveForPair(ctx context.Context, bookID, borrowerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, bookID, borrowerID)
	return args.Bool(0), args.Error(1)
}

func (m *BorrowRepository) HasActiveForBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	args := m.Called(ctx, bookID)
	return args.Bool(0), args.Error(1)
}

func (m *BorrowRepository) ApplyTransition(ctx context.Context, t repository.BorrowTransition) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *BorrowRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter domain.BorrowListFilter, params domain.PaginationParams) ([]domain.BorrowRecord, int64, error) {
	args := m.Called(ctx, userID, filter, params)
	return args.Get(0).([]domain.BorrowRecord), args.Get(1).(int64), args.Error(2)
}
