package services

import (
	"context"
	"testing"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := env.authService()
	user := env.createLoginUser(t, "agent1", domain.RoleAgent, "s3cret-pass")

	t.Run("success opens a session", func(t *testing.T) {
		result, err := auth.Login(ctx, &LoginInput{Username: "agent1", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, "agent1", result.User.Username)

		assert.EqualValues(t, 1, env.countRows(t, &models.LoginSession{}, "user_id = ?", user.ID))
		assert.EqualValues(t, 1, env.countRows(t, &models.ActivityLog{},
			"user_id = ? AND action = ?", user.ID, string(domain.ActionUserLogin)))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := auth.Login(ctx, &LoginInput{Username: "agent1", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := auth.Login(ctx, &LoginInput{Username: "nobody", Password: "s3cret-pass"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		require.NoError(t, env.db.Model(user).Update("is_active", false).Error)
		_, err := auth.Login(ctx, &LoginInput{Username: "agent1", Password: "s3cret-pass"})
		assert.ErrorIs(t, err, ErrUserInactive)
	})
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := env.authService()
	env.createLoginUser(t, "agent1", domain.RoleAgent, "s3cret-pass")

	login, err := auth.Login(ctx, &LoginInput{Username: "agent1", Password: "s3cret-pass"})
	require.NoError(t, err)

	refreshed, err := auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the rotated-out token is dead
	_, err = auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// the new one still works
	_, err = auth.Refresh(ctx, refreshed.RefreshToken)
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := auth.Refresh(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := env.authService()
	user := env.createLoginUser(t, "agent1", domain.RoleAgent, "s3cret-pass")

	login, err := auth.Login(ctx, &LoginInput{Username: "agent1", Password: "s3cret-pass"})
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, user.ID, login.RefreshToken))

	// session is closed
	var session models.LoginSession
	require.NoError(t, env.db.Where("user_id = ?", user.ID).First(&session).Error)
	assert.NotNil(t, session.LogoutAt)

	// refresh token is revoked
	_, err = auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogoutAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := env.authService()
	user := env.createLoginUser(t, "agent1", domain.RoleAgent, "s3cret-pass")

	first, err := auth.Login(ctx, &LoginInput{Username: "agent1", Password: "s3cret-pass"})
	require.NoError(t, err)
	second, err := auth.Login(ctx, &LoginInput{Username: "agent1", Password: "s3cret-pass"})
	require.NoError(t, err)

	require.NoError(t, auth.LogoutAll(ctx, user.ID))

	_, err = auth.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = auth.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
