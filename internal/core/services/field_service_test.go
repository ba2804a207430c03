package services

import (
	"context"
	"testing"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/core/domain"
	"registryhub/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFieldsRequiresEditableState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	doc := env.uploadDocument(t, agent, "rabat", "naissances", 2020, "1")
	inputs := []FieldInput{{Name: "nom", Value: "Alaoui"}}

	// pending
	_, err := env.fieldService.SaveFields(ctx, doc.ID, inputs, false, agent.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// reviewing
	_, err = env.docService.StartReview(ctx, doc.ID, supervisor.ID)
	require.NoError(t, err)
	_, err = env.fieldService.SaveFields(ctx, doc.ID, inputs, false, agent.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// rejected
	_, err = env.docService.Reject(ctx, doc.ID, &RejectInput{ErrorType: "blurry", Message: "redo"}, supervisor.ID)
	require.NoError(t, err)
	_, err = env.fieldService.SaveFields(ctx, doc.ID, inputs, false, agent.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// no field rows leaked out of the refused writes
	assert.Zero(t, env.countRows(t, &models.DocumentField{}, "document_id = ?", doc.ID))
}

func TestSaveFieldsUpsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	doc := env.storedDocument(t, agent, supervisor, "rabat", 2020, "1")

	_, err := env.fieldService.SaveFields(ctx, doc.ID, []FieldInput{
		{Name: "nom", Value: "Alaoui", Order: 0},
		{Name: "prenom", Value: "Sara", Order: 1},
	}, false, agent.ID)
	require.NoError(t, err)

	// same name overwrites, it does not duplicate
	_, err = env.fieldService.SaveFields(ctx, doc.ID, []FieldInput{
		{Name: "nom", Value: "El Alaoui", Order: 0},
	}, false, agent.ID)
	require.NoError(t, err)

	fields, err := env.fieldService.GetFields(ctx, doc.ID, agent.ID)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "nom", fields[0].FieldName)
	assert.Equal(t, "El Alaoui", fields[0].FieldValue)
	assert.Equal(t, "prenom", fields[1].FieldName)

	t.Run("empty input refused", func(t *testing.T) {
		_, err := env.fieldService.SaveFields(ctx, doc.ID, nil, false, agent.ID)
		assert.ErrorIs(t, err, ErrNoFields)
		_, err = env.fieldService.SaveFields(ctx, doc.ID, []FieldInput{{Value: "nameless"}}, false, agent.ID)
		assert.ErrorIs(t, err, ErrNoFields)
	})
}

func TestSubmitFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	doc := env.storedDocument(t, agent, supervisor, "rabat", 2020, "1")

	submitted := metrics.DocumentTransitions.WithLabelValues(string(domain.ActionFieldsSubmitted))
	before := testutil.ToFloat64(submitted)

	updated, err := env.fieldService.SaveFields(ctx, doc.ID, []FieldInput{
		{Name: "nom", Value: "Alaoui"},
	}, true, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusFieldsExtracted), updated.Status)

	// saving again on a submitted document just writes fields
	updated, err = env.fieldService.SaveFields(ctx, doc.ID, []FieldInput{
		{Name: "prenom", Value: "Sara"},
	}, true, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusFieldsExtracted), updated.Status)
	assert.EqualValues(t, 2, env.countRows(t, &models.DocumentField{}, "document_id = ?", doc.ID))

	// only the first submit moved the document, so only one transition
	// is counted
	assert.InDelta(t, before+1, testutil.ToFloat64(submitted), 0.001)
}

func TestExtract(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")

	doc := env.storedDocument(t, agent, supervisor, "rabat", 2020, "1")

	updated, err := env.fieldService.Extract(ctx, doc.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusProcessing), updated.Status)

	// the naissances template produced its field skeleton
	fields, err := env.fieldService.GetFields(ctx, doc.ID, agent.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.FieldName)
	}
	assert.Contains(t, names, "nom")
	assert.Contains(t, names, "date_naissance")

	t.Run("extract refused outside editable states", func(t *testing.T) {
		pending := env.uploadDocument(t, agent, "rabat", "naissances", 2020, "2")
		_, err := env.fieldService.Extract(ctx, pending.ID, agent.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestDeleteFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := env.createUser(t, "agent1", domain.RoleAgent)
	supervisor := env.createUser(t, "sup1", domain.RoleSupervisor, "rabat")
	admin := env.createUser(t, "boss", domain.RoleAdmin)

	doc := env.storedDocument(t, agent, supervisor, "rabat", 2020, "1")
	_, err := env.fieldService.SaveFields(ctx, doc.ID, []FieldInput{
		{Name: "nom", Value: "Alaoui"},
	}, true, agent.ID)
	require.NoError(t, err)

	t.Run("admin only", func(t *testing.T) {
		_, err := env.fieldService.DeleteFields(ctx, doc.ID, agent.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = env.fieldService.DeleteFields(ctx, doc.ID, supervisor.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("clears rows and resets to stored", func(t *testing.T) {
		updated, err := env.fieldService.DeleteFields(ctx, doc.ID, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusStored), updated.Status)
		assert.Zero(t, env.countRows(t, &models.DocumentField{}, "document_id = ?", doc.ID))
	})
}
