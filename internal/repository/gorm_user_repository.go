package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	apperrors "tanrid/internal/errors"
	"tanrid/internal/model"
)

type gormUserRepository struct {
	db *gorm.DB

	schemaMu    sync.Mutex
	schemaReady bool
}

// NewGormUserRepository builds a GORM-backed repository.
// The users table is migrated lazily on first use.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// ensureSchema migrates the users table once; a failed attempt is retried on the next call.
func (r *gormUserRepository) ensureSchema(ctx context.Context) error {
	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()
	if r.schemaReady {
		return nil
	}
	if err := r.db.WithContext(ctx).AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("migrate users table: %w", err)
	}
	r.schemaReady = true
	return nil
}

func (r *gormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", model.NormalizeEmail(email))
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *gormUserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*model.User, error) {
	if tokenHash == "" {
		return nil, apperrors.ErrUserNotFound
	}
	return r.first(ctx, "reset_token_hash = ?", tokenHash)
}

func (r *gormUserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	user.Email = model.NormalizeEmail(user.Email)

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, apperrors.ErrEmailAlreadyRegistered
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *gormUserRepository) Update(ctx context.Context, id string, upd UserUpdate) (*model.User, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var updated model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&updated).Error; err != nil {
			return err
		}
		if !upd.matchesResetToken(updated.ResetTokenHash) {
			return ErrResetTokenChanged
		}
		if cols := upd.columns(); len(cols) > 0 {
			q := tx.Model(&model.User{}).Where("id = ?", id)
			if upd.ExpectResetTokenHash != "" {
				q = q.Where("reset_token_hash = ?", upd.ExpectResetTokenHash)
			}
			res := q.Updates(cols)
			if res.Error != nil {
				return res.Error
			}
			if upd.ExpectResetTokenHash != "" && res.RowsAffected == 0 {
				return ErrResetTokenChanged
			}
		}
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		if errors.Is(err, ErrResetTokenChanged) {
			return nil, err
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return &updated, nil
}

func (r *gormUserRepository) first(ctx context.Context, query string, args ...any) (*model.User, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}
