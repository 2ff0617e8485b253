package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/middleware"
	"tusach-congdong/internal/service/book"
)

type BookHandler struct {
	bookService book.Service
}

func NewBookHandler(bookService book.Service) *BookHandler {
	return &BookHandler{bookService: bookService}
}

func (h *BookHandler) Create(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var input domain.CreateBookInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if input.Title == "" {
		return middleware.BadRequest("Title is required")
	}

	created, err := h.bookService.Create(c.Context(), userID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *BookHandler) List(c *fiber.Ctx) error {
	params := getPaginationParams(c)

	var ownerID *uuid.UUID
	if c.Query("mine") == "true" {
		id := middleware.GetCurrentUserID(c)
		ownerID = &id
	} else if owner := c.Query("owner_id"); owner != "" {
		id, err := uuid.Parse(owner)
		if err != nil {
			return middleware.BadRequest("Invalid owner ID")
		}
		ownerID = &id
	}

	result, err := h.bookService.List(c.Context(), ownerID, params)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *BookHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return middleware.BadRequest("Search query is required")
	}

	books, err := h.bookService.Search(c.Context(), query, c.QueryInt("limit", 20))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(books)
}

func (h *BookHandler) Get(c *fiber.Ctx) error {
	bookID, err := uuid.Parse(c.Params("bookId"))
	if err != nil {
		return middleware.BadRequest("Invalid book ID")
	}

	found, err := h.bookService.GetByID(c.Context(), bookID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(found)
}

func (h *BookHandler) Update(c *fiber.Ctx) error {
	bookID, err := uuid.Parse(c.Params("bookId"))
	if err != nil {
		return middleware.BadRequest("Invalid book ID")
	}

	var input domain.UpdateBookInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	updated, err := h.bookService.Update(c.Context(), bookID, middleware.GetCurrentUserID(c), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(updated)
}

func (h *BookHandler) Delete(c *fiber.Ctx) error {
	bookID, err := uuid.Parse(c.Params("bookId"))
	if err != nil {
		return middleware.BadRequest("Invalid book ID")
	}

	if err := h.bookService.Delete(c.Context(), bookID, middleware.GetCurrentUserID(c)); err != nil {
		return err
	}

	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *BookHandler) UploadCover(c *fiber.Ctx) error {
	bookID, err := uuid.Parse(c.Params("bookId"))
	if err != nil {
		return middleware.BadRequest("Invalid book ID")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return middleware.BadRequest("Cover file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return middleware.BadRequest("Cannot read cover file")
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	updated, err := h.bookService.UploadCover(
		c.Context(), bookID, middleware.GetCurrentUserID(c),
		fileHeader.Filename, fileHeader.Size, mimeType, file,
	)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(updated)
}
