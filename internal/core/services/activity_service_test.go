package services

import (
	"context"
	"testing"
	"time"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityListAndPurge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewActivityService(env.history, env.users)

	admin := env.createUser(t, "boss", domain.RoleAdmin)
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	now := time.Now()
	env.logActivityAt(t, agent.ID, domain.ActionDocumentUploaded, now.Add(-48*time.Hour))
	env.logActivityAt(t, agent.ID, domain.ActionDocumentUploaded, now.Add(-time.Hour))
	env.logActivityAt(t, supervisor.ID, domain.ActionDocumentApproved, now.Add(-time.Hour))

	t.Run("filter by user", func(t *testing.T) {
		_, total, err := svc.List(ctx, repositories.ActivityFilters{UserID: agent.ID}, admin.ID, 0, 50)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})

	t.Run("filter by action", func(t *testing.T) {
		entries, total, err := svc.List(ctx, repositories.ActivityFilters{
			Action: string(domain.ActionDocumentApproved),
		}, admin.ID, 0, 50)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, supervisor.ID, entries[0].UserID)
	})

	t.Run("future cutoff refused", func(t *testing.T) {
		_, err := svc.Purge(ctx, now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrBadPurgeCutoff)
	})

	t.Run("purge removes only old entries", func(t *testing.T) {
		removed, err := svc.Purge(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, removed)
		assert.EqualValues(t, 2, env.countRows(t, &models.ActivityLog{}, ""))
	})
}

func TestActivityScopedBySupervisor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewActivityService(env.history, env.users)

	admin := env.createUser(t, "boss", domain.RoleAdmin)
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supRabat := env.createUser(t, "sup-rabat", domain.RoleSupervisor, "rabat")
	supEmpty := env.createUser(t, "sup-none", domain.RoleSupervisor)

	rabatDoc := env.uploadDocument(t, agent, "rabat", "naissances", 2020, "1")
	env.uploadDocument(t, agent, "fes", "naissances", 2020, "2")
	// a user-level event only admins should read
	require.NoError(t, env.db.Create(&models.ActivityLog{
		UserID: agent.ID, Action: string(domain.ActionUserLogin),
		EntityType: "user", EntityID: agent.ID,
	}).Error)

	t.Run("supervisor sees only own-bureau document entries", func(t *testing.T) {
		entries, total, err := svc.List(ctx, repositories.ActivityFilters{}, supRabat.ID, 0, 50)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, entries, 1)
		assert.Equal(t, rabatDoc.ID, entries[0].EntityID)
	})

	t.Run("supervisor without bureaus sees nothing", func(t *testing.T) {
		_, total, err := svc.List(ctx, repositories.ActivityFilters{}, supEmpty.ID, 0, 50)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("admin sees the whole log", func(t *testing.T) {
		_, total, err := svc.List(ctx, repositories.ActivityFilters{}, admin.ID, 0, 50)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewActivityService(env.history, env.users)

	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	// approval notifies the uploading agent
	doc := env.storedDocument(t, agent, supervisor, "rabat", 2020, "1")

	notifications, err := svc.Notifications(ctx, agent.ID, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Document approved", notifications[0].Title)
	require.NotNil(t, notifications[0].DocumentID)
	assert.Equal(t, doc.ID, *notifications[0].DocumentID)
	assert.False(t, notifications[0].IsRead)

	t.Run("mark read", func(t *testing.T) {
		require.NoError(t, svc.MarkNotificationRead(ctx, agent.ID, notifications[0].ID))
		refreshed, err := svc.Notifications(ctx, agent.ID, 0)
		require.NoError(t, err)
		assert.True(t, refreshed[0].IsRead)
	})

	t.Run("cannot mark someone else's notification", func(t *testing.T) {
		err := svc.MarkNotificationRead(ctx, supervisor.ID, notifications[0].ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
