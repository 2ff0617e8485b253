package unit_test

import (
	"context"
	"testing"
	"time"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/service/notification"
	"tusach-congdong/tests/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newNotificationService(
	notifRepo *mocks.NotificationRepository,
	settingsRepo *mocks.SettingsRepository,
	userRepo *mocks.UserRepository,
	auditRepo *mocks.AuditLogRepository,
	chunkSize int,
) notification.Service {
	return notification.NewService(notifRepo, settingsRepo, userRepo, auditRepo, nil, nil, chunkSize)
}

func borrowIntent(userID uuid.UUID) domain.NotificationIntent {
	relatedID := uuid.New()
	relatedType := domain.RelatedBorrowRecord
	return domain.NotificationIntent{
		UserID:      userID,
		Type:        domain.NotifBorrowApproved,
		Title:       "Yêu cầu mượn sách được chấp nhận",
		Message:     "Chủ sách đã đồng ý cho bạn mượn cuốn \"Dế Mèn Phiêu Lưu Ký\"",
		RelatedID:   &relatedID,
		RelatedType: &relatedType,
	}
}

func TestNotificationService_Dispatch_Dedupe(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	intent := borrowIntent(userID)

	t.Run("duplicate caught by lookup is a no-op", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		settingsRepo := new(mocks.SettingsRepository)
		svc := newNotificationService(notifRepo, settingsRepo, new(mocks.UserRepository), new(mocks.AuditLogRepository), 500)

		notifRepo.On("ExistsByDedupKey", ctx, userID, *intent.RelatedID, *intent.RelatedType, intent.Type).
			Return(true, nil).Once()

		notif, err := svc.Dispatch(ctx, intent)

		assert.NoError(t, err)
		assert.Nil(t, notif)
		notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		notifRepo.AssertExpectations(t)
	})

	t.Run("duplicate lost at insert is a no-op", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		settingsRepo := new(mocks.SettingsRepository)
		svc := newNotificationService(notifRepo, settingsRepo, new(mocks.UserRepository), new(mocks.AuditLogRepository), 500)

		notifRepo.On("ExistsByDedupKey", ctx, userID, *intent.RelatedID, *intent.RelatedType, intent.Type).
			Return(false, nil).Once()
		settingsRepo.On("GetByUserID", ctx, userID).Return(nil, nil).Once()
		notifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(domain.ErrDuplicateNotification).Once()

		notif, err := svc.Dispatch(ctx, intent)

		assert.NoError(t, err)
		assert.Nil(t, notif)
		notifRepo.AssertExpectations(t)
	})

	t.Run("second identical dispatch is suppressed", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		settingsRepo := new(mocks.SettingsRepository)
		svc := newNotificationService(notifRepo, settingsRepo, new(mocks.UserRepository), new(mocks.AuditLogRepository), 500)

		notifRepo.On("ExistsByDedupKey", ctx, userID, *intent.RelatedID, *intent.RelatedType, intent.Type).
			Return(false, nil).Once()
		settingsRepo.On("GetByUserID", ctx, userID).Return(nil, nil).Once()
		notifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil).Once()

		first, err := svc.Dispatch(ctx, intent)
		assert.NoError(t, err)
		assert.NotNil(t, first)

		notifRepo.On("ExistsByDedupKey", ctx, userID, *intent.RelatedID, *intent.RelatedType, intent.Type).
			Return(true, nil).Once()

		second, err := svc.Dispatch(ctx, intent)
		assert.NoError(t, err)
		assert.Nil(t, second)

		notifRepo.AssertNumberOfCalls(t, "Create", 1)
		notifRepo.AssertExpectations(t)
	})
}

func TestNotificationService_Dispatch_ChannelResolution(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	dispatchWithSettings := func(t *testing.T, settings *domain.NotificationSettings, at time.Time) domain.NotificationChannel {
		t.Helper()
		notifRepo := new(mocks.NotificationRepository)
		settingsRepo := new(mocks.SettingsRepository)
		svc := newNotificationService(notifRepo, settingsRepo, new(mocks.UserRepository), new(mocks.AuditLogRepository), 500)
		svc.SetClock(func() time.Time { return at })

		intent := borrowIntent(userID)
		notifRepo.On("ExistsByDedupKey", ctx, userID, *intent.RelatedID, *intent.RelatedType, intent.Type).
			Return(false, nil).Once()
		settingsRepo.On("GetByUserID", ctx, userID).Return(settings, nil).Once()

		var created *domain.Notification
		notifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*domain.Notification)
			}).Return(nil).Once()

		notif, err := svc.Dispatch(ctx, intent)
		assert.NoError(t, err)
		assert.NotNil(t, notif)
		notifRepo.AssertExpectations(t)
		return created.Channel
	}

	quietNights := &domain.NotificationSettings{
		UserID:            userID,
		EmailEnabled:      true,
		InAppEnabled:      true,
		QuietHoursEnabled: true,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "07:00",
	}

	t.Run("email suppressed inside quiet hours", func(t *testing.T) {
		channel := dispatchWithSettings(t, quietNights, atClock(23, 30))
		assert.Equal(t, domain.ChannelInApp, channel)
	})

	t.Run("both channels outside quiet hours", func(t *testing.T) {
		channel := dispatchWithSettings(t, quietNights, atClock(12, 0))
		assert.Equal(t, domain.ChannelBoth, channel)
	})

	t.Run("email disabled means in-app only", func(t *testing.T) {
		noEmail := &domain.NotificationSettings{
			UserID:       userID,
			EmailEnabled: false,
			InAppEnabled: true,
		}
		channel := dispatchWithSettings(t, noEmail, atClock(12, 0))
		assert.Equal(t, domain.ChannelInApp, channel)
	})

	t.Run("missing settings row falls back to defaults", func(t *testing.T) {
		channel := dispatchWithSettings(t, nil, atClock(23, 30))
		assert.Equal(t, domain.ChannelBoth, channel, "defaults have quiet hours disabled")
	})
}

func TestNotificationService_DispatchBulk(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	input := domain.BroadcastInput{
		TargetType:   domain.TargetProvince,
		TargetFilter: "Hà Nội",
		Title:        "Ngày hội đổi sách",
		Message:      "Cuối tuần này tại thư viện quận",
	}

	t.Run("zero recipients records an empty batch", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		userRepo := new(mocks.UserRepository)
		auditRepo := new(mocks.AuditLogRepository)
		svc := newNotificationService(notifRepo, new(mocks.SettingsRepository), userRepo, auditRepo, 500)

		userRepo.On("ListIDsByTarget", ctx, input.TargetType, input.TargetFilter, input.UserIDs).
			Return([]uuid.UUID{}, nil).Once()
		notifRepo.On("CreateBatch", ctx, mock.MatchedBy(func(b *domain.NotificationBatch) bool {
			return b.RecipientCount == 0 && b.CreatedBy == actorID
		})).Return(nil).Once()
		auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

		batch, err := svc.DispatchBulk(ctx, actorID, input)

		assert.NoError(t, err)
		assert.NotNil(t, batch)
		assert.Equal(t, 0, batch.RecipientCount)
		notifRepo.AssertNotCalled(t, "CreateMany", mock.Anything, mock.Anything)
		notifRepo.AssertExpectations(t)
	})

	t.Run("recipients insert in chunks", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		settingsRepo := new(mocks.SettingsRepository)
		userRepo := new(mocks.UserRepository)
		auditRepo := new(mocks.AuditLogRepository)
		svc := newNotificationService(notifRepo, settingsRepo, userRepo, auditRepo, 500)

		recipients := make([]uuid.UUID, 1200)
		for i := range recipients {
			recipients[i] = uuid.New()
		}

		userRepo.On("ListIDsByTarget", ctx, input.TargetType, input.TargetFilter, input.UserIDs).
			Return(recipients, nil).Once()
		notifRepo.On("CreateBatch", ctx, mock.MatchedBy(func(b *domain.NotificationBatch) bool {
			return b.RecipientCount == 1200
		})).Return(nil).Once()
		settingsRepo.On("GetByUserIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return([]domain.NotificationSettings{}, nil).Times(3)
		auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		var chunkSizes []int
		notifRepo.On("CreateMany", ctx, mock.AnythingOfType("[]domain.Notification")).
			Run(func(args mock.Arguments) {
				chunkSizes = append(chunkSizes, len(args.Get(1).([]domain.Notification)))
			}).Return(nil).Times(3)

		batch, err := svc.DispatchBulk(ctx, actorID, input)

		assert.NoError(t, err)
		assert.Equal(t, 1200, batch.RecipientCount)
		assert.Equal(t, []int{500, 500, 200}, chunkSizes)
		notifRepo.AssertExpectations(t)
		settingsRepo.AssertExpectations(t)
	})

	t.Run("failed chunk aborts the remainder", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		settingsRepo := new(mocks.SettingsRepository)
		userRepo := new(mocks.UserRepository)
		svc := newNotificationService(notifRepo, settingsRepo, userRepo, new(mocks.AuditLogRepository), 500)

		recipients := make([]uuid.UUID, 1000)
		for i := range recipients {
			recipients[i] = uuid.New()
		}

		userRepo.On("ListIDsByTarget", ctx, input.TargetType, input.TargetFilter, input.UserIDs).
			Return(recipients, nil).Once()
		notifRepo.On("CreateBatch", ctx, mock.AnythingOfType("*domain.NotificationBatch")).Return(nil).Once()
		settingsRepo.On("GetByUserIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return([]domain.NotificationSettings{}, nil).Once()
		notifRepo.On("CreateMany", ctx, mock.AnythingOfType("[]domain.Notification")).
			Return(assert.AnError).Once()

		batch, err := svc.DispatchBulk(ctx, actorID, input)

		assert.Error(t, err)
		assert.NotNil(t, batch, "the batch row already exists")
		notifRepo.AssertNumberOfCalls(t, "CreateMany", 1)
		notifRepo.AssertExpectations(t)
	})
}

func TestNotificationService_GetSettings(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("first read persists the defaults", func(t *testing.T) {
		settingsRepo := new(mocks.SettingsRepository)
		svc := newNotificationService(new(mocks.NotificationRepository), settingsRepo, new(mocks.UserRepository), new(mocks.AuditLogRepository), 500)

		settingsRepo.On("GetByUserID", ctx, userID).Return(nil, nil).Once()
		settingsRepo.On("Upsert", ctx, mock.MatchedBy(func(s *domain.NotificationSettings) bool {
			return s.UserID == userID && s.EmailEnabled && s.InAppEnabled &&
				!s.QuietHoursEnabled && s.QuietHoursStart == "22:00" && s.QuietHoursEnd == "07:00"
		})).Return(nil).Once()

		settings, err := svc.GetSettings(ctx, userID)

		assert.NoError(t, err)
		assert.True(t, settings.EmailEnabled)
		settingsRepo.AssertExpectations(t)
	})

	t.Run("a stored row is returned without a write", func(t *testing.T) {
		settingsRepo := new(mocks.SettingsRepository)
		svc := newNotificationService(new(mocks.NotificationRepository), settingsRepo, new(mocks.UserRepository), new(mocks.AuditLogRepository), 500)

		stored := &domain.NotificationSettings{UserID: userID, EmailEnabled: false, InAppEnabled: true}
		settingsRepo.On("GetByUserID", ctx, userID).Return(stored, nil).Once()

		settings, err := svc.GetSettings(ctx, userID)

		assert.NoError(t, err)
		assert.False(t, settings.EmailEnabled)
		settingsRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

func TestNotificationService_UpdateSettings(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("rejects malformed quiet hours boundary", func(t *testing.T) {
		settingsRepo := new(mocks.SettingsRepository)
		svc := newNotificationService(new(mocks.NotificationRepository), settingsRepo, new(mocks.UserRepository), new(mocks.AuditLogRepository), 500)

		settingsRepo.On("GetByUserID", ctx, userID).Return(nil, nil).Once()

		bad := "25:99"
		settings, err := svc.UpdateSettings(ctx, userID, domain.UpdateNotificationSettingsInput{
			QuietHoursStart: &bad,
		})

		assert.Error(t, err)
		assert.Nil(t, settings)
		settingsRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("merges partial update over defaults", func(t *testing.T) {
		settingsRepo := new(mocks.SettingsRepository)
		svc := newNotificationService(new(mocks.NotificationRepository), settingsRepo, new(mocks.UserRepository), new(mocks.AuditLogRepository), 500)

		settingsRepo.On("GetByUserID", ctx, userID).Return(nil, nil).Once()
		settingsRepo.On("Upsert", ctx, mock.MatchedBy(func(s *domain.NotificationSettings) bool {
			return s.UserID == userID && s.QuietHoursEnabled && s.QuietHoursStart == "21:00" && s.EmailEnabled
		})).Return(nil).Once()

		enabled := true
		start := "21:00"
		settings, err := svc.UpdateSettings(ctx, userID, domain.UpdateNotificationSettingsInput{
			QuietHoursEnabled: &enabled,
			QuietHoursStart:   &start,
		})

		assert.NoError(t, err)
		assert.NotNil(t, settings)
		assert.Equal(t, "07:00", settings.QuietHoursEnd, "untouched fields keep their defaults")
		settingsRepo.AssertExpectations(t)
	})
}
