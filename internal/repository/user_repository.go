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

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	SetTrusted(ctx context.Context, userID uuid.UUID, trusted bool) error
	List(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error)
	ListIDsByTarget(ctx context.Context, targetType, filter string, userIDs []uuid.UUID) ([]uuid.UUID, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, avatar_url, phone, province, role, is_trusted, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName,
		user.AvatarURL, user.Phone, user.Province, user.Role, user.IsTrusted, user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT * FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `SELECT * FROM users WHERE email = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET full_name = $2, avatar_url = $3, phone = $4, province = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	return r.db.QueryRowxContext(ctx, query,
		user.ID, user.FullName, user.AvatarURL, user.Phone, user.Province,
	).Scan(&user.UpdatedAt)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`
	err := r.db.GetContext(ctx, &exists, query, email)
	return exists, err
}

func (r *userRepository) SetTrusted(ctx context.Context, userID uuid.UUID, trusted bool) error {
	query := `UPDATE users SET is_trusted = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, userID, trusted)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error) {
	params.Validate()

	var total int64
	countQuery := `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT * FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	var users []domain.User
	err := r.db.SelectContext(ctx, &users, query, params.PageSize, params.Offset())
	return users, total, err
}

// ListIDsByTarget resolves a broadcast recipient set. An unknown target
// or a filter matching nobody resolves to an empty slice, not an error.
func (r *userRepository) ListIDsByTarget(ctx context.Context, targetType, filter string, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	var err error

	switch targetType {
	case domain.TargetAll:
		err = r.db.SelectContext(ctx, &ids,
			`SELECT id FROM users WHERE deleted_at IS NULL AND is_active = true`)
	case domain.TargetTrusted:
		err = r.db.SelectContext(ctx, &ids,
			`SELECT id FROM users WHERE deleted_at IS NULL AND is_active = true AND is_trusted = true`)
	case domain.TargetProvince:
		err = r.db.SelectContext(ctx, &ids,
			`SELECT id FROM users WHERE deleted_at IS NULL AND is_active = true AND province = $1`, filter)
	case domain.TargetUsers:
		if len(userIDs) == 0 {
			return []uuid.UUID{}, nil
		}
		err = r.db.SelectContext(ctx, &ids,
			`SELECT id FROM users WHERE deleted_at IS NULL AND is_active = true AND id = ANY($1)`,
			pq.Array(userIDs))
	default:
		return []uuid.UUID{}, nil
	}

	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}
