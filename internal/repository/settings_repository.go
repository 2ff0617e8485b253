package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tusach-congdong/internal/domain"
)

type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.NotificationSettings, error)
	GetByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]domain.NotificationSettings, error)
	Upsert(ctx context.Context, settings *domain.NotificationSettings) error
}

type settingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// GetByUserID returns nil without error when no row exists; callers
// fall back to domain.DefaultNotificationSettings.
func (r *settingsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.NotificationSettings, error) {
	var settings domain.NotificationSettings
	query := `SELECT * FROM user_notification_settings WHERE user_id = $1`

	err := r.db.GetContext(ctx, &settings, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) GetByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]domain.NotificationSettings, error) {
	if len(userIDs) == 0 {
		return []domain.NotificationSettings{}, nil
	}

	var settings []domain.NotificationSettings
	query := `SELECT * FROM user_notification_settings WHERE user_id = ANY($1)`

	err := r.db.SelectContext(ctx, &settings, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.NotificationSettings) error {
	query := `
		INSERT INTO user_notification_settings (user_id, email_enabled, in_app_enabled, quiet_hours_enabled, quiet_hours_start, quiet_hours_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			in_app_enabled = EXCLUDED.in_app_enabled,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			updated_at = NOW()
		RETURNING updated_at`

	return r.db.QueryRowxContext(ctx, query,
		settings.UserID, settings.EmailEnabled, settings.InAppEnabled,
		settings.QuietHoursEnabled, settings.QuietHoursStart, settings.QuietHoursEnd,
	).Scan(&settings.UpdatedAt)
}
