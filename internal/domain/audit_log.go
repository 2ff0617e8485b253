package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ActorID    uuid.UUID `json:"actor_id" db:"actor_id"`
	ActorName  *string   `json:"actor_name,omitempty" db:"actor_name"`
	Action     string    `json:"action" db:"action"`
	TargetType string    `json:"target_type" db:"target_type"`
	TargetID   uuid.UUID `json:"target_id" db:"target_id"`
	Note       *string   `json:"note,omitempty" db:"note"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type CreateAuditLogInput struct {
	ActorID    uuid.UUID
	Action     string
	TargetType string
	TargetID   uuid.UUID
	Note       *string
}
