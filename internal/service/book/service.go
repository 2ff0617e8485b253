package book

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"

	"tusach-congdong/internal/config"
	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/repository"
)

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input domain.CreateBookInput) (*domain.Book, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	Update(ctx context.Context, id, actorID uuid.UUID, input domain.UpdateBookInput) (*domain.Book, error)
	Delete(ctx context.Context, id, actorID uuid.UUID) error
	List(ctx context.Context, ownerID *uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.Book], error)
	Search(ctx context.Context, query string, limit int) ([]domain.Book, error)
	UploadCover(ctx context.Context, id, actorID uuid.UUID, fileName string, fileSize int64, mimeType string, reader io.Reader) (*domain.Book, error)
}

type service struct {
	bookRepo    repository.BookRepository
	borrowRepo  repository.BorrowRepository
	auditRepo   repository.AuditLogRepository
	minioClient *minio.Client
	redis       *redis.Client
	cfg         *config.Config
}

func NewService(
	bookRepo repository.BookRepository,
	borrowRepo repository.BorrowRepository,
	auditRepo repository.AuditLogRepository,
	minioClient *minio.Client,
	redis *redis.Client,
	cfg *config.Config,
) Service {
	return &service{
		bookRepo:    bookRepo,
		borrowRepo:  borrowRepo,
		auditRepo:   auditRepo,
		minioClient: minioClient,
		redis:       redis,
		cfg:         cfg,
	}
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input domain.CreateBookInput) (*domain.Book, error) {
	book := &domain.Book{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       input.Title,
		Author:      input.Author,
		Description: input.Description,
		Category:    input.Category,
		Status:      domain.BookAvailable,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	_ = repository.CreateAuditLog(s.auditRepo, ctx, domain.CreateAuditLogInput{
		ActorID:    ownerID,
		Action:     "CREATE_BOOK",
		TargetType: "book",
		TargetID:   book.ID,
	})

	return book, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	cacheKey := bookCacheKey(id)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var book domain.Book
			if err := json.Unmarshal([]byte(cached), &book); err == nil {
				return &book, nil
			}
		}
	}

	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, domain.ErrBookNotFound
	}

	if s.redis != nil {
		if data, err := json.Marshal(book); err == nil {
			_ = s.redis.Set(ctx, cacheKey, data, 5*time.Minute).Err()
		}
	}

	return book, nil
}

func (s *service) Update(ctx context.Context, id, actorID uuid.UUID, input domain.UpdateBookInput) (*domain.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, domain.ErrBookNotFound
	}
	if book.OwnerID != actorID {
		return nil, domain.ErrNotAllowed
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.Description != nil {
		book.Description = *input.Description
	}
	if input.Category != nil {
		book.Category = *input.Category
	}
	if input.Status != nil {
		if err := s.validateManualStatus(ctx, book, *input.Status); err != nil {
			return nil, err
		}
		book.Status = *input.Status
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	_ = repository.CreateAuditLog(s.auditRepo, ctx, domain.CreateAuditLogInput{
		ActorID:    actorID,
		Action:     "UPDATE_BOOK",
		TargetType: "book",
		TargetID:   book.ID,
	})

	return book, nil
}

// validateManualStatus restricts owner-set status changes: `borrowed`
// belongs to the workflow, and a book with an active borrow record
// cannot be toggled by hand at all.
func (s *service) validateManualStatus(ctx context.Context, book *domain.Book, status domain.BookStatus) error {
	if !status.IsValid() || status == domain.BookBorrowed {
		return domain.ErrInvalidTransition
	}
	if status == book.Status {
		return nil
	}

	active, err := s.borrowRepo.HasActiveForBook(ctx, book.ID)
	if err != nil {
		return err
	}
	if active {
		return domain.ErrBookHasActiveBorrow
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if book == nil {
		return domain.ErrBookNotFound
	}
	if book.OwnerID != actorID {
		return domain.ErrNotAllowed
	}

	active, err := s.borrowRepo.HasActiveForBook(ctx, id)
	if err != nil {
		return err
	}
	if active {
		return domain.ErrBookHasActiveBorrow
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	_ = repository.CreateAuditLog(s.auditRepo, ctx, domain.CreateAuditLogInput{
		ActorID:    actorID,
		Action:     "DELETE_BOOK",
		TargetType: "book",
		TargetID:   id,
	})

	return nil
}

func (s *service) List(ctx context.Context, ownerID *uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.Book], error) {
	books, total, err := s.bookRepo.List(ctx, ownerID, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Book]{}, err
	}

	return domain.NewPaginatedResponse(books, params.Page, params.PageSize, total), nil
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	return s.bookRepo.Search(ctx, query, limit)
}

func (s *service) UploadCover(ctx context.Context, id, actorID uuid.UUID, fileName string, fileSize int64, mimeType string, reader io.Reader) (*domain.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, domain.ErrBookNotFound
	}
	if book.OwnerID != actorID {
		return nil, domain.ErrNotAllowed
	}
	if s.minioClient == nil {
		return nil, fmt.Errorf("cover storage is not configured")
	}

	storagePath := fmt.Sprintf("covers/%s/%s", time.Now().Format("2006/01"), id.String())

	_, err = s.minioClient.PutObject(ctx, s.cfg.MinIOBucket, storagePath, reader, fileSize, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload cover: %w", err)
	}

	scheme := "http"
	if s.cfg.MinIOUseSSL {
		scheme = "https"
	}
	coverURL := fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.MinIOEndpoint, s.cfg.MinIOBucket, storagePath)

	if err := s.bookRepo.SetCoverURL(ctx, id, coverURL); err != nil {
		_ = s.minioClient.RemoveObject(ctx, s.cfg.MinIOBucket, storagePath, minio.RemoveObjectOptions{})
		return nil, err
	}

	book.CoverURL = &coverURL
	s.invalidate(ctx, id)

	return book, nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.redis != nil {
		_ = s.redis.Del(ctx, bookCacheKey(id)).Err()
	}
}

func bookCacheKey(id uuid.UUID) string {
	return "book:" + id.String()
}
