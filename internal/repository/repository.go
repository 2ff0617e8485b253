package repository

import (
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	User         UserRepository
	Book         BookRepository
	Borrow       BorrowRepository
	Notification NotificationRepository
	Settings     SettingsRepository
	AuditLog     AuditLogRepository
	Session      SessionRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Book:         NewBookRepository(db),
		Borrow:       NewBorrowRepository(db),
		Notification: NewNotificationRepository(db),
		Settings:     NewSettingsRepository(db),
		AuditLog:     NewAuditLogRepository(db),
		Session:      NewSessionRepository(db),
	}
}
