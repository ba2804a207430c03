package repositories

import (
	"context"
	"time"

	"registryhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// refreshTokenRepository implements RefreshTokenRepository interface
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create creates a new refresh token
func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByTokenHash gets a refresh token by its hash
func (r *refreshTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeByTokenHash revokes a refresh token by its hash
func (r *refreshTokenRepository) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", now).Error
}

// RevokeAllByUserID revokes all refresh tokens of a user
func (r *refreshTokenRepository) RevokeAllByUserID(ctx context.Context, userID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}

// DeleteExpired removes expired refresh tokens
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.RefreshToken{}).Error
}

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new login session repository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Open records a new login session
func (r *sessionRepository) Open(ctx context.Context, userID uint, at time.Time) (*models.LoginSession, error) {
	session := &models.LoginSession{UserID: userID, LoginAt: at}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// CloseLatest stamps the logout time on the user's most recent open session
func (r *sessionRepository) CloseLatest(ctx context.Context, userID uint, at time.Time) error {
	var session models.LoginSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND logout_at IS NULL", userID).
		Order("login_at DESC").
		First(&session).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&session).
		Update("logout_at", at).Error
}

// ListInRange returns sessions overlapping a date range
func (r *sessionRepository) ListInRange(ctx context.Context, from, to time.Time) ([]*models.LoginSession, error) {
	var sessions []*models.LoginSession
	err := r.db.WithContext(ctx).
		Where("login_at < ? AND (logout_at IS NULL OR logout_at >= ?)", to, from).
		Order("login_at").
		Find(&sessions).Error
	return sessions, err
}
