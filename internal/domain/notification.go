package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	UserID      uuid.UUID           `json:"user_id" db:"user_id"`
	Type        NotificationType    `json:"type" db:"type"`
	Title       string              `json:"title" db:"title"`
	Message     string              `json:"message" db:"message"`
	Link        *string             `json:"link,omitempty" db:"link"`
	RelatedID   *uuid.UUID          `json:"related_id,omitempty" db:"related_id"`
	RelatedType *string             `json:"related_type,omitempty" db:"related_type"`
	Channel     NotificationChannel `json:"channel" db:"channel"`
	IsRead      bool                `json:"is_read" db:"is_read"`
	IsImportant bool                `json:"is_important" db:"is_important"`
	ReadAt      *time.Time          `json:"read_at,omitempty" db:"read_at"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
}

type NotificationType string

const (
	NotifBorrowRequest   NotificationType = "borrow_request"
	NotifBorrowApproved  NotificationType = "borrow_approved"
	NotifBorrowRejected  NotificationType = "borrow_rejected"
	NotifReturnRequested NotificationType = "return_requested"
	NotifReturnConfirmed NotificationType = "return_confirmed"
	NotifBroadcast       NotificationType = "broadcast"
)

type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
	ChannelBoth  NotificationChannel = "both"
)

// Related entity kinds carried on a notification's dedup key.
const (
	RelatedBorrowRecord      = "borrow_record"
	RelatedNotificationBatch = "notification_batch"
)

// NotificationIntent is what callers hand to the dispatcher. The channel
// is resolved per recipient at dispatch time, never by the caller.
type NotificationIntent struct {
	UserID      uuid.UUID        `json:"user_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Link        *string          `json:"link,omitempty"`
	RelatedID   *uuid.UUID       `json:"related_id,omitempty"`
	RelatedType *string          `json:"related_type,omitempty"`
	IsImportant bool             `json:"is_important"`
}

type NotificationBatch struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Message        string    `json:"message" db:"message"`
	TargetType     string    `json:"target_type" db:"target_type"`
	TargetFilter   string    `json:"target_filter" db:"target_filter"`
	RecipientCount int       `json:"recipient_count" db:"recipient_count"`
	CreatedBy      uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Broadcast target kinds accepted by DispatchBulk.
const (
	TargetAll      = "all"
	TargetTrusted  = "trusted"
	TargetProvince = "province"
	TargetUsers    = "users"
)

type BroadcastInput struct {
	TargetType   string      `json:"target_type" validate:"required,oneof=all trusted province users"`
	TargetFilter string      `json:"target_filter,omitempty"`
	UserIDs      []uuid.UUID `json:"user_ids,omitempty"`
	Title        string      `json:"title" validate:"required,min=1"`
	Message      string      `json:"message" validate:"required,min=1"`
	Link         *string     `json:"link,omitempty"`
	IsImportant  bool        `json:"is_important"`
}

type NotificationSettings struct {
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	EmailEnabled      bool      `json:"email_enabled" db:"email_enabled"`
	InAppEnabled      bool      `json:"in_app_enabled" db:"in_app_enabled"`
	QuietHoursEnabled bool      `json:"quiet_hours_enabled" db:"quiet_hours_enabled"`
	QuietHoursStart   string    `json:"quiet_hours_start" db:"quiet_hours_start"`
	QuietHoursEnd     string    `json:"quiet_hours_end" db:"quiet_hours_end"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

func DefaultNotificationSettings(userID uuid.UUID) *NotificationSettings {
	return &NotificationSettings{
		UserID:            userID,
		EmailEnabled:      true,
		InAppEnabled:      true,
		QuietHoursEnabled: false,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "07:00",
	}
}

type UpdateNotificationSettingsInput struct {
	EmailEnabled      *bool   `json:"email_enabled,omitempty"`
	InAppEnabled      *bool   `json:"in_app_enabled,omitempty"`
	QuietHoursEnabled *bool   `json:"quiet_hours_enabled,omitempty"`
	QuietHoursStart   *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     *string `json:"quiet_hours_end,omitempty"`
}
