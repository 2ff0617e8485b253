package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/middleware"
	"tusach-congdong/internal/service/borrow"
)

type BorrowHandler struct {
	borrowService borrow.Service
}

func NewBorrowHandler(borrowService borrow.Service) *BorrowHandler {
	return &BorrowHandler{borrowService: borrowService}
}

// Request creates a pending borrow record for the calling member.
func (h *BorrowHandler) Request(c *fiber.Ctx) error {
	bookID, err := uuid.Parse(c.Params("bookId"))
	if err != nil {
		return middleware.BadRequest("Invalid book ID")
	}

	record, err := h.borrowService.Request(c.Context(), bookID, middleware.GetCurrentUserID(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *BorrowHandler) Approve(c *fiber.Ctx) error {
	return h.applyAction(c, domain.ActionApprove)
}

func (h *BorrowHandler) Reject(c *fiber.Ctx) error {
	return h.applyAction(c, domain.ActionReject)
}

func (h *BorrowHandler) ConfirmReceived(c *fiber.Ctx) error {
	return h.applyAction(c, domain.ActionConfirmReceived)
}

func (h *BorrowHandler) RequestReturn(c *fiber.Ctx) error {
	return h.applyAction(c, domain.ActionRequestReturn)
}

func (h *BorrowHandler) ConfirmReturned(c *fiber.Ctx) error {
	return h.applyAction(c, domain.ActionConfirmReturned)
}

func (h *BorrowHandler) Cancel(c *fiber.Ctx) error {
	return h.applyAction(c, domain.ActionCancel)
}

func (h *BorrowHandler) applyAction(c *fiber.Ctx, action domain.BorrowAction) error {
	recordID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid borrow record ID")
	}

	var input domain.BorrowActionInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return middleware.BadRequest("Invalid request body")
		}
	}

	record, err := h.borrowService.ApplyAction(c.Context(), recordID, middleware.GetCurrentUserID(c), action, input.Note)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(record)
}

func (h *BorrowHandler) Get(c *fiber.Ctx) error {
	recordID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid borrow record ID")
	}

	record, err := h.borrowService.GetByID(c.Context(), recordID, middleware.GetCurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(record)
}

func (h *BorrowHandler) List(c *fiber.Ctx) error {
	params := getPaginationParams(c)

	filter := domain.BorrowListFilter{
		AsBorrower: c.Query("as_borrower") == "true",
		AsOwner:    c.Query("as_owner") == "true",
	}
	if status := c.Query("status"); status != "" {
		s := domain.BorrowStatus(status)
		filter.Status = &s
	}

	result, err := h.borrowService.ListByUser(c.Context(), middleware.GetCurrentUserID(c), filter, params)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
