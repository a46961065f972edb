package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Conte777/tgviewer/internal/domain/auth/deps"
	"github.com/Conte777/tgviewer/internal/domain/auth/entities"
	autherrors "github.com/Conte777/tgviewer/internal/domain/auth/errors"
	pkgerrors "github.com/Conte777/tgviewer/pkg/errors"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) deps.UserRepository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, username, passwordHash string) (*entities.User, error) {
	user := &entities.User{
		Username:     username,
		PasswordHash: passwordHash,
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, autherrors.ErrUsernameTaken
		}
		return nil, pkgerrors.WrapInternalError("database operation failed", err)
	}

	return user, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, query string, arg interface{}) (*entities.User, error) {
	var user entities.User
	result := r.db.WithContext(ctx).Where(query, arg).First(&user)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, autherrors.ErrUserNotFound
		}
		return nil, pkgerrors.WrapInternalError("database operation failed", result.Error)
	}

	return &user, nil
}
