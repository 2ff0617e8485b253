package user

import (
	"context"

	"github.com/google/uuid"

	"tusach-congdong/internal/domain"
	"tusach-congdong/internal/repository"
)

type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input domain.UpdateUserInput) (*domain.User, error)
	List(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.User], error)
	SetTrusted(ctx context.Context, actorID, userID uuid.UUID, trusted bool) error
}

type service struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditLogRepository
}

func NewService(userRepo repository.UserRepository, auditRepo repository.AuditLogRepository) Service {
	return &service{
		userRepo:  userRepo,
		auditRepo: auditRepo,
	}
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input domain.UpdateUserInput) (*domain.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Province != nil {
		user.Province = *input.Province
	}
	if input.AvatarURL != nil {
		user.AvatarURL = *input.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) List(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.User], error) {
	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return domain.PaginatedResponse[domain.User]{}, err
	}

	return domain.NewPaginatedResponse(users, params.Page, params.PageSize, total), nil
}

func (s *service) SetTrusted(ctx context.Context, actorID, userID uuid.UUID, trusted bool) error {
	if err := s.userRepo.SetTrusted(ctx, userID, trusted); err != nil {
		return err
	}

	action := "GRANT_TRUSTED"
	if !trusted {
		action = "REVOKE_TRUSTED"
	}
	_ = repository.CreateAuditLog(s.auditRepo, ctx, domain.CreateAuditLogInput{
		ActorID:    actorID,
		Action:     action,
		TargetType: "user",
		TargetID:   userID,
	})

	return nil
}
