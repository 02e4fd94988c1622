package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationTokenRepository interface {
	Create(ctx context.Context, token *entity.VerificationToken) error
	FindValid(ctx context.Context, tokenHash string, tokenType entity.VerificationType) (*entity.VerificationToken, error)
	FindLatestForUser(ctx context.Context, userID uuid.UUID, tokenType entity.VerificationType) (*entity.VerificationToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
	InvalidateForUser(ctx context.Context, userID uuid.UUID, tokenType entity.VerificationType) error
}

type verificationTokenRepository struct {
	db *gorm.DB
}

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (r *verificationTokenRepository) Create(ctx context.Context, t *entity.VerificationToken) error {
	return r.db.WithContext(ctx).Omit("User").Create(t).Error
}

func (r *verificationTokenRepository) FindValid(
	ctx context.Context,
	tokenHash string,
	tokenType entity.VerificationType,
) (*entity.VerificationToken, error) {
	return r.first(r.db.WithContext(ctx).
		Where(`
			token_hash = ? AND
			type = ? AND
			used_at IS NULL AND
			expires_at > NOW()
		`, tokenHash, tokenType))
}

func (r *verificationTokenRepository) FindLatestForUser(
	ctx context.Context,
	userID uuid.UUID,
	tokenType entity.VerificationType,
) (*entity.VerificationToken, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND used_at IS NULL AND expires_at > NOW()", userID, tokenType).
		Order("created_at DESC"))
}

func (r *verificationTokenRepository) first(query *gorm.DB) (*entity.VerificationToken, error) {
	var token entity.VerificationToken
	err := query.First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *verificationTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.VerificationToken{}).
		Where("id = ?", id).
		Update("used_at", &now).
		Error
}

func (r *verificationTokenRepository) InvalidateForUser(ctx context.Context, userID uuid.UUID, tokenType entity.VerificationType) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.VerificationToken{}).
		Where("user_id = ? AND type = ? AND used_at IS NULL", userID, tokenType).
		Update("used_at", &now).
		Error
}
