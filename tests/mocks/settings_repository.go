package mocks

import (
	"context"
	"tusach-congdong/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type SettingsRepository struct {
	mock.Mock
}

func (m *SettingsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.NotificationSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NotificationSettings), args.Error(1)
}

func (m *SettingsRepository) GetByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]domain.NotificationSettings, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NotificationSettings), args.Error(1)
}

func (m *SettingsRepository) Upsert(ctx context.Context, settings *domain.NotificationSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}
