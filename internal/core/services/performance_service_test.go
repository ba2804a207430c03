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

func (e *testEnv) perfService() *PerformanceService {
	return NewPerformanceService(e.history, repositories.NewSessionRepository(e.db))
}

func (e *testEnv) logActivityAt(t *testing.T, userID uint, action domain.Action, at time.Time) {
	t.Helper()
	entry := &models.ActivityLog{UserID: userID, Action: string(action), EntityType: "document"}
	require.NoError(t, e.db.Create(entry).Error)
	require.NoError(t, e.db.Model(entry).Update("created_at", at).Error)
}

func TestPerformanceReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	perf := env.perfService()

	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 10)

	// agent: three entries on two distinct days
	env.logActivityAt(t, agent.ID, domain.ActionDocumentUploaded, from.Add(2*time.Hour))
	env.logActivityAt(t, agent.ID, domain.ActionDocumentUploaded, from.Add(3*time.Hour))
	env.logActivityAt(t, agent.ID, domain.ActionDocumentUploaded, from.AddDate(0, 0, 1).Add(time.Hour))
	// supervisor: one entry, plus one outside the range that must not count
	env.logActivityAt(t, supervisor.ID, domain.ActionDocumentApproved, from.Add(5*time.Hour))
	env.logActivityAt(t, supervisor.ID, domain.ActionDocumentApproved, to.Add(time.Hour))

	// agent worked a closed 6h session; supervisor left one open, which
	// counts until the end of the range
	loginAt := from.Add(time.Hour)
	logoutAt := loginAt.Add(6 * time.Hour)
	require.NoError(t, env.db.Create(&models.LoginSession{
		UserID: agent.ID, LoginAt: loginAt, LogoutAt: &logoutAt,
	}).Error)
	supLogin := to.Add(-2 * time.Hour)
	require.NoError(t, env.db.Create(&models.LoginSession{
		UserID: supervisor.ID, LoginAt: supLogin,
	}).Error)

	report, err := perf.GetReport(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, report.Users, 2)

	agentStats := report.Users[0]
	require.Equal(t, agent.ID, agentStats.UserID)
	assert.Equal(t, "agent1", agentStats.Username)
	assert.EqualValues(t, 3, agentStats.ActivityCount)
	assert.Equal(t, 2, agentStats.ActiveDays)
	assert.InDelta(t, 0.3, agentStats.AvgPerDay, 0.001) // 3 entries over 10 days
	assert.InDelta(t, 6.0, agentStats.WorkHours, 0.001)

	supStats := report.Users[1]
	require.Equal(t, supervisor.ID, supStats.UserID)
	assert.EqualValues(t, 1, supStats.ActivityCount)
	assert.Equal(t, 1, supStats.ActiveDays)
	assert.InDelta(t, 2.0, supStats.WorkHours, 0.001)
}

func TestTopPerformers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	perf := env.perfService()

	a := env.createUser(t, "agent-a", domain.RoleAgent)
	b := env.createUser(t, "agent-b", domain.RoleAgent)
	c := env.createUser(t, "agent-c", domain.RoleAgent)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	for i := 0; i < 5; i++ {
		env.logActivityAt(t, b.ID, domain.ActionDocumentUploaded, from.Add(time.Duration(i)*time.Hour))
	}
	for i := 0; i < 2; i++ {
		env.logActivityAt(t, a.ID, domain.ActionDocumentUploaded, from.Add(time.Duration(i)*time.Hour))
	}
	env.logActivityAt(t, c.ID, domain.ActionDocumentUploaded, from.Add(time.Hour))

	top, err := perf.TopPerformers(ctx, from, to, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, b.ID, top[0].UserID)
	assert.EqualValues(t, 5, top[0].ActivityCount)
	assert.Equal(t, a.ID, top[1].UserID)
}
