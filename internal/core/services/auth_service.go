package services

import (
	"context"
	"errors"
	"log"
	"time"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/config"
	"registryhub/internal/core/domain"
	"registryhub/internal/pkg/jwt"
	"registryhub/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	sessionRepo      repositories.SessionRepository
	historyRepo      *repositories.HistoryRepository
	cfg              *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	sessionRepo repositories.SessionRepository,
	historyRepo *repositories.HistoryRepository,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		sessionRepo:      sessionRepo,
		historyRepo:      historyRepo,
		cfg:              cfg,
	}
}

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// Login authenticates a user and opens a login session
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := s.sessionRepo.Open(ctx, user.ID, now); err != nil {
		log.Printf("⚠️ Failed to open login session for user %d: %v", user.ID, err)
	}
	s.logActivity(ctx, user.ID, domain.ActionUserLogin, "")

	log.Printf("✅ User logged in: %s [%s]", user.Username, user.Role)

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// generateTokens issues an access/refresh pair and persists the refresh
// token hash
func (s *AuthService) generateTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		user.ID, user.Username, user.Role,
		s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	tokenID := uuid.NewString()
	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID, tokenID,
		s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}
	if err := s.refreshTokenRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh rotates a refresh token and issues a new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	record, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if record.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if record.IsExpired() {
		return nil, ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// Rotation: old token is dead as soon as the new one exists
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, record.TokenHash); err != nil {
		return nil, err
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Logout revokes the refresh token and closes the login session
func (s *AuthService) Logout(ctx context.Context, userID uint, refreshToken string) error {
	if refreshToken != "" {
		if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken)); err != nil {
			log.Printf("⚠️ Failed to revoke refresh token for user %d: %v", userID, err)
		}
	}

	if err := s.sessionRepo.CloseLatest(ctx, userID, time.Now()); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("⚠️ Failed to close login session for user %d: %v", userID, err)
	}
	s.logActivity(ctx, userID, domain.ActionUserLogout, "")

	return nil
}

// LogoutAll revokes every refresh token of the user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}
	if err := s.sessionRepo.CloseLatest(ctx, userID, time.Now()); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("⚠️ Failed to close login session for user %d: %v", userID, err)
	}
	return nil
}

// Me returns the authenticated user's profile
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// logActivity appends a user-level activity entry, log-and-continue
func (s *AuthService) logActivity(ctx context.Context, userID uint, action domain.Action, details string) {
	entry := &models.ActivityLog{
		UserID:     userID,
		Action:     string(action),
		EntityType: "user",
		EntityID:   userID,
		Details:    details,
	}
	if err := s.historyRepo.AppendActivity(ctx, entry); err != nil {
		log.Printf("⚠️ Failed to append activity log (%s, user %d): %v", action, userID, err)
	}
}
