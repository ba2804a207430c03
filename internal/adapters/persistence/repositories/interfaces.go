package repositories

import (
	"context"
	"time"

	"registryhub/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	GetBureaus(ctx context.Context, userID uint) ([]string, error)
	ReplaceBureaus(ctx context.Context, userID uint, bureaus []string) error
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}

// SessionRepository defines login session repository interface
type SessionRepository interface {
	Open(ctx context.Context, userID uint, at time.Time) (*models.LoginSession, error)
	CloseLatest(ctx context.Context, userID uint, at time.Time) error
	ListInRange(ctx context.Context, from, to time.Time) ([]*models.LoginSession, error)
}
