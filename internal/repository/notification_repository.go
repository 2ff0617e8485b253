package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tusach-congdong/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.Notification) error
	CreateMany(ctx context.Context, notifs []domain.Notification) error
	ExistsByDedupKey(ctx context.Context, userID, relatedID uuid.UUID, relatedType string, notifType domain.NotificationType) (bool, error)
	CreateBatch(ctx context.Context, batch *domain.NotificationBatch) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts one notification. The notifications table carries a
// unique index on (user_id, related_id, related_type, type); a
// conflicting insert is dropped silently so that a racing duplicate
// behaves exactly like one caught by ExistsByDedupKey.
func (r *notificationRepository) Create(ctx context.Context, notif *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, link, related_id, related_type, channel, is_important)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, related_id, related_type, type) DO NOTHING
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		notif.ID, notif.UserID, notif.Type, notif.Title, notif.Message,
		notif.Link, notif.RelatedID, notif.RelatedType, notif.Channel, notif.IsImportant,
	).Scan(&notif.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrDuplicateNotification
	}
	return err
}

func (r *notificationRepository) CreateMany(ctx context.Context, notifs []domain.Notification) error {
	if len(notifs) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(notifs))
	args := make([]interface{}, 0, len(notifs)*10)
	for i, n := range notifs {
		base := i * 10
		group := make([]string, 10)
		for j := range group {
			group[j] = "$" + strconv.Itoa(base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(group, ", ")+")")
		args = append(args,
			n.ID, n.UserID, n.Type, n.Title, n.Message,
			n.Link, n.RelatedID, n.RelatedType, n.Channel, n.IsImportant,
		)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, link, related_id, related_type, channel, is_important)
		VALUES ` + strings.Join(placeholders, ", ")

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *notificationRepository) ExistsByDedupKey(ctx context.Context, userID, relatedID uuid.UUID, relatedType string, notifType domain.NotificationType) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND related_id = $2 AND related_type = $3 AND type = $4
		)`

	err := r.db.GetContext(ctx, &exists, query, userID, relatedID, relatedType, notifType)
	return exists, err
}

func (r *notificationRepository) CreateBatch(ctx context.Context, batch *domain.NotificationBatch) error {
	query := `
		INSERT INTO notification_batches (id, title, message, target_type, target_filter, recipient_count, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	return r.db.QueryRowxContext(ctx, query,
		batch.ID, batch.Title, batch.Message, batch.TargetType,
		batch.TargetFilter, batch.RecipientCount, batch.CreatedBy,
	).Scan(&batch.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	params.Validate()

	var total int64
	var notifications []domain.Notification

	if unreadOnly {
		countQuery := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
		if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
			return nil, 0, err
		}

		query := `
			SELECT * FROM notifications
			WHERE user_id = $1 AND is_read = false
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`
		err := r.db.SelectContext(ctx, &notifications, query, userID, params.PageSize, params.Offset())
		return notifications, total, err
	}

	countQuery := `SELECT COUNT(*) FROM notifications WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &notifications, query, userID, params.PageSize, params.Offset())
	return notifications, total, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true, read_at = NOW() WHERE id = $1 AND user_id = $2 AND is_read = false`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	return err
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true, read_at = NOW() WHERE user_id = $1 AND is_read = false`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}
