package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"

	"tusach-congdong/internal/config"
	"tusach-congdong/internal/repository"
	"tusach-congdong/internal/service/audit"
	"tusach-congdong/internal/service/auth"
	"tusach-congdong/internal/service/book"
	"tusach-congdong/internal/service/borrow"
	"tusach-congdong/internal/service/email"
	"tusach-congdong/internal/service/notification"
	"tusach-congdong/internal/service/user"
)

type Services struct {
	Auth         auth.Service
	User         user.Service
	Book         book.Service
	Borrow       borrow.Service
	Notification notification.Service
	Email        email.Service
	Audit        audit.Service
}

func NewServices(repos *repository.Repositories, redis *redis.Client, minioClient *minio.Client, cfg *config.Config) *Services {
	emailService := email.NewService(cfg)
	authService := auth.NewService(repos.User, repos.Session, emailService, cfg)
	auditService := audit.NewService(repos.AuditLog)
	userService := user.NewService(repos.User, repos.AuditLog)
	bookService := book.NewService(repos.Book, repos.Borrow, repos.AuditLog, minioClient, redis, cfg)

	notificationService := notification.NewService(
		repos.Notification,
		repos.Settings,
		repos.User,
		repos.AuditLog,
		emailService,
		redis,
		cfg.BulkChunkSize,
	)

	borrowService := borrow.NewService(repos.Borrow, repos.Book, repos.AuditLog, notificationService, redis)

	return &Services{
		Auth:         authService,
		User:         userService,
		Book:         bookService,
		Borrow:       borrowService,
		Notification: notificationService,
		Email:        emailService,
		Audit:        auditService,
	}
}
