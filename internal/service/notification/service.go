package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/repository"
	"tusach-congdong/internal/service/email"
)

// Service is the notification dispatcher. Every notification row in the
// system is created here: single dispatches are deduplicated per
// (user, related entity, type) and bulk sends are chunked so no single
// insert grows unbounded.
type Service interface {
	Dispatch(ctx context.Context, intent domain.NotificationIntent) (*domain.Notification, error)
	DispatchBulk(ctx context.Context, actorID uuid.UUID, input domain.BroadcastInput) (*domain.NotificationBatch, error)
	ResolveChannel(ctx context.Context, userID uuid.UUID) (domain.NotificationChannel, error)

	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)

	GetSettings(ctx context.Context, userID uuid.UUID) (*domain.NotificationSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, input domain.UpdateNotificationSettingsInput) (*domain.NotificationSettings, error)

	SetClock(now func() time.Time)
}

type service struct {
	notifRepo    repository.NotificationRepository
	settingsRepo repository.SettingsRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditLogRepository
	emailSvc     email.Service
	redis        *redis.Client
	chunkSize    int
	now          func() time.Time
}

func NewService(
	notifRepo repository.NotificationRepository,
	settingsRepo repository.SettingsRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	emailSvc email.Service,
	redis *redis.Client,
	chunkSize int,
) Service {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &service{
		notifRepo:    notifRepo,
		settingsRepo: settingsRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		emailSvc:     emailSvc,
		redis:        redis,
		chunkSize:    chunkSize,
		now:          time.Now,
	}
}

// SetClock replaces the wall clock; tests use it to pin quiet-hours
// evaluation to a fixed instant.
func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

// Dispatch persists one notification unless an identical event was
// already delivered. A suppressed duplicate returns (nil, nil): it is a
// successful no-op, not a failure.
func (s *service) Dispatch(ctx context.Context, intent domain.NotificationIntent) (*domain.Notification, error) {
	if intent.RelatedID != nil && intent.RelatedType != nil {
		exists, err := s.notifRepo.ExistsByDedupKey(ctx, intent.UserID, *intent.RelatedID, *intent.RelatedType, intent.Type)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, nil
		}
	}

	settings, err := s.settingsForUser(ctx, intent.UserID)
	if err != nil {
		return nil, err
	}

	notif := &domain.Notification{
		ID:          uuid.New(),
		UserID:      intent.UserID,
		Type:        intent.Type,
		Title:       intent.Title,
		Message:     intent.Message,
		Link:        intent.Link,
		RelatedID:   intent.RelatedID,
		RelatedType: intent.RelatedType,
		Channel:     resolveChannel(settings, s.now()),
		IsImportant: intent.IsImportant,
	}

	if err := s.notifRepo.Create(ctx, notif); err != nil {
		if errors.Is(err, domain.ErrDuplicateNotification) {
			// Lost the race against an identical insert; same outcome
			// as the dedup check above.
			return nil, nil
		}
		return nil, err
	}

	s.invalidateUnreadCount(ctx, intent.UserID)
	s.sendEmailCopy(notif)

	return notif, nil
}

// DispatchBulk resolves the recipient set, records the batch, then
// inserts notifications in chunks. Each chunk stands alone: a failed
// chunk aborts the remainder but already-inserted chunks stay.
func (s *service) DispatchBulk(ctx context.Context, actorID uuid.UUID, input domain.BroadcastInput) (*domain.NotificationBatch, error) {
	recipientIDs, err := s.userRepo.ListIDsByTarget(ctx, input.TargetType, input.TargetFilter, input.UserIDs)
	if err != nil {
		return nil, err
	}

	filter := input.TargetFilter
	if input.TargetType == domain.TargetUsers {
		filter = joinIDs(input.UserIDs)
	}

	batch := &domain.NotificationBatch{
		ID:             uuid.New(),
		Title:          input.Title,
		Message:        input.Message,
		TargetType:     input.TargetType,
		TargetFilter:   filter,
		RecipientCount: len(recipientIDs),
		CreatedBy:      actorID,
	}

	if err := s.notifRepo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	relatedType := domain.RelatedNotificationBatch
	for start := 0; start < len(recipientIDs); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(recipientIDs) {
			end = len(recipientIDs)
		}
		chunk := recipientIDs[start:end]

		settingsByUser, err := s.settingsForUsers(ctx, chunk)
		if err != nil {
			return batch, err
		}

		notifs := make([]domain.Notification, 0, len(chunk))
		dispatchedAt := s.now()
		for _, userID := range chunk {
			batchID := batch.ID
			notifs = append(notifs, domain.Notification{
				ID:          uuid.New(),
				UserID:      userID,
				Type:        domain.NotifBroadcast,
				Title:       input.Title,
				Message:     input.Message,
				Link:        input.Link,
				RelatedID:   &batchID,
				RelatedType: &relatedType,
				Channel:     resolveChannel(settingsByUser[userID], dispatchedAt),
				IsImportant: input.IsImportant,
			})
		}

		if err := s.notifRepo.CreateMany(ctx, notifs); err != nil {
			return batch, err
		}

		for _, userID := range chunk {
			s.invalidateUnreadCount(ctx, userID)
		}
	}

	_ = repository.CreateAuditLog(s.auditRepo, ctx, domain.CreateAuditLogInput{
		ActorID:    actorID,
		Action:     "BROADCAST_NOTIFICATION",
		TargetType: domain.RelatedNotificationBatch,
		TargetID:   batch.ID,
	})

	return batch, nil
}

func (s *service) ResolveChannel(ctx context.Context, userID uuid.UUID) (domain.NotificationChannel, error) {
	settings, err := s.settingsForUser(ctx, userID)
	if err != nil {
		return domain.ChannelInApp, err
	}
	return resolveChannel(settings, s.now()), nil
}

// resolveChannel picks in_app unless the user takes email and is not
// inside quiet hours right now.
func resolveChannel(settings *domain.NotificationSettings, now time.Time) domain.NotificationChannel {
	if settings != nil && settings.EmailEnabled && !IsQuietAt(settings, now) {
		return domain.ChannelBoth
	}
	return domain.ChannelInApp
}

func (s *service) settingsForUser(ctx context.Context, userID uuid.UUID) (*domain.NotificationSettings, error) {
	settings, err := s.settingsRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = domain.DefaultNotificationSettings(userID)
	}
	return settings, nil
}

func (s *service) settingsForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*domain.NotificationSettings, error) {
	stored, err := s.settingsRepo.GetByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID]*domain.NotificationSettings, len(userIDs))
	for i := range stored {
		byUser[stored[i].UserID] = &stored[i]
	}
	for _, id := range userIDs {
		if _, ok := byUser[id]; !ok {
			byUser[id] = domain.DefaultNotificationSettings(id)
		}
	}
	return byUser, nil
}

func (s *service) sendEmailCopy(notif *domain.Notification) {
	if s.emailSvc == nil || notif.Channel != domain.ChannelBoth {
		return
	}

	go func(n domain.Notification) {
		ctx := context.Background()
		user, err := s.userRepo.GetByID(ctx, n.UserID)
		if err != nil || user == nil || user.Email == "" {
			return
		}
		if err := s.emailSvc.SendNotificationEmail(ctx, user.Email, user.FullName, n.Title, n.Message, n.Link); err != nil {
			log.Printf("Failed to send notification email to user %s: %v", n.UserID, err)
		}
	}(*notif)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	notifications, total, err := s.notifRepo.ListByUser(ctx, userID, unreadOnly, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, err
	}

	return domain.NewPaginatedResponse(notifications, params.Page, params.PageSize, total), nil
}

func (s *service) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.notifRepo.MarkAsRead(ctx, id, userID); err != nil {
		return err
	}
	s.invalidateUnreadCount(ctx, userID)
	return nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.notifRepo.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}
	s.invalidateUnreadCount(ctx, userID)
	return nil
}

func (s *service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	cacheKey := unreadCountKey(userID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Int64(); err == nil {
			return cached, nil
		}
	}

	count, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		_ = s.redis.Set(ctx, cacheKey, count, time.Minute).Err()
	}

	return count, nil
}

// GetSettings creates the settings row lazily: a user with no stored
// row gets the defaults persisted on first read. Dispatch-time reads
// stay write-free and fall back to defaults in memory.
func (s *service) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.NotificationSettings, error) {
	settings, err := s.settingsRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = domain.DefaultNotificationSettings(userID)
		if err := s.settingsRepo.Upsert(ctx, settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

func (s *service) UpdateSettings(ctx context.Context, userID uuid.UUID, input domain.UpdateNotificationSettingsInput) (*domain.NotificationSettings, error) {
	settings, err := s.settingsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.EmailEnabled != nil {
		settings.EmailEnabled = *input.EmailEnabled
	}
	if input.InAppEnabled != nil {
		settings.InAppEnabled = *input.InAppEnabled
	}
	if input.QuietHoursEnabled != nil {
		settings.QuietHoursEnabled = *input.QuietHoursEnabled
	}
	if input.QuietHoursStart != nil {
		if _, ok := parseMinuteOfDay(*input.QuietHoursStart); !ok {
			return nil, fmt.Errorf("invalid quiet_hours_start %q", *input.QuietHoursStart)
		}
		settings.QuietHoursStart = *input.QuietHoursStart
	}
	if input.QuietHoursEnd != nil {
		if _, ok := parseMinuteOfDay(*input.QuietHoursEnd); !ok {
			return nil, fmt.Errorf("invalid quiet_hours_end %q", *input.QuietHoursEnd)
		}
		settings.QuietHoursEnd = *input.QuietHoursEnd
	}

	if err := s.settingsRepo.Upsert(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *service) invalidateUnreadCount(ctx context.Context, userID uuid.UUID) {
	if s.redis != nil {
		_ = s.redis.Del(ctx, unreadCountKey(userID)).Err()
	}
}

func unreadCountKey(userID uuid.UUID) string {
	return "notifications:unread:" + userID.String()
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
