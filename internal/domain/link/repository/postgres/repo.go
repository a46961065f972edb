package postgres

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/entities"
	linkerrors "github.com/Conte777/tgviewer/internal/domain/link/errors"
	pkgerrors "github.com/Conte777/tgviewer/pkg/errors"
)

const userLockStripes = 64

type Repository struct {
	db *gorm.DB

	// serializes Save per user; the partial unique index on active rows is the backstop
	userLocks [userLockStripes]sync.Mutex
}

func NewRepository(db *gorm.DB) deps.CredentialRepository {
	return &Repository{db: db}
}

func (r *Repository) lockFor(userID int64) *sync.Mutex {
	idx := userID % userLockStripes
	if idx < 0 {
		idx = -idx
	}
	return &r.userLocks[idx]
}

func (r *Repository) Save(ctx context.Context, userID int64, credential, phone string) (*entities.StoredCredential, error) {
	mu := r.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	stored := &entities.StoredCredential{
		UserID:        userID,
		SessionString: credential,
		PhoneNumber:   phone,
		IsActive:      true,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.StoredCredential{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(stored).Error
	})
	if err != nil {
		return nil, pkgerrors.WrapInternalError("database operation failed", err)
	}

	return stored, nil
}

func (r *Repository) GetActive(ctx context.Context, userID int64) (*entities.StoredCredential, error) {
	var stored entities.StoredCredential
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		First(&stored)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, linkerrors.ErrNoActiveSession
		}
		return nil, pkgerrors.WrapInternalError("database operation failed", result.Error)
	}

	return &stored, nil
}

func (r *Repository) DeactivateAll(ctx context.Context, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.StoredCredential{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)

	if result.Error != nil {
		return 0, pkgerrors.WrapInternalError("database operation failed", result.Error)
	}

	return result.RowsAffected, nil
}
