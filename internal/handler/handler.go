package handler

import (
	"github.com/gofiber/fiber/v2"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/service"
)

type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Book         *BookHandler
	Borrow       *BorrowHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(services.Auth),
		User:         NewUserHandler(services.User),
		Book:         NewBookHandler(services.Book),
		Borrow:       NewBorrowHandler(services.Borrow),
		Notification: NewNotificationHandler(services.Notification),
		Audit:        NewAuditHandler(services.Audit),
	}
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()

	if page := c.QueryInt("page", 1); page > 0 {
		params.Page = page
	}
	if pageSize := c.QueryInt("page_size", 20); pageSize > 0 {
		params.PageSize = pageSize
	}

	params.Validate()
	return params
}
